package main

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clack/engine"
	"clack/keys"
	"clack/log"
	"clack/shortcut"
)

type statusMsg engine.Status

const volumeStep = 5

type tuiModel struct {
	ctl  *engine.Controller
	feed *keys.Feed // nil when keys come from a global reader

	state      engine.State
	message    string
	title      string
	volume     float64
	clips      int
	lastKey    string
	lastBucket int
	presses    int
}

// Pre-computed styles to avoid allocations in render loop
var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	barOnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barOffStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	bucketStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	bucketHot    = lipgloss.NewStyle().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("214")).Padding(0, 1)

	stateStyles = map[engine.State]lipgloss.Style{
		engine.Idle:         lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		engine.LoadingAudio: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		engine.AudioReady:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		engine.AudioFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		engine.Listening:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
	stateLabels = map[engine.State]string{
		engine.Idle:         "○ IDLE",
		engine.LoadingAudio: "◌ LOADING",
		engine.AudioReady:   "○ STOPPED",
		engine.AudioFailed:  "✗ FAILED",
		engine.Listening:    "● LISTENING",
	}
)

func newTUIModel(ctl *engine.Controller, feed *keys.Feed) tuiModel {
	return tuiModel{
		ctl:        ctl,
		feed:       feed,
		message:    engine.MsgLoading,
		volume:     ctl.Volume(),
		lastBucket: -1,
	}
}

func (m tuiModel) Init() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		if err := ctl.Load(); err != nil {
			log.Warnf("load: %v", err)
		}
		return nil
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusMsg:
		s := engine.Status(msg)
		m.state = s.State
		m.message = statusLine(s)
		if s.Last != nil {
			m.lastKey = s.Last.Key.String()
			m.lastBucket = s.Last.Bucket
			m.presses++
		}
		if s.Title != "" {
			m.title = s.Title
		}
		if s.State == engine.AudioReady || s.State == engine.Listening {
			m.clips = m.ctl.Library().Len()
		}
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctl := m.ctl
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		return m, func() tea.Msg {
			if err := ctl.Toggle(); err != nil {
				log.Debugf("toggle: %v", err)
			}
			return nil
		}
	case "up", "+", "=":
		return m.nudgeVolume(volumeStep)
	case "down", "-":
		return m.nudgeVolume(-volumeStep)
	case "ctrl+r":
		return m, func() tea.Msg {
			if err := ctl.Reload(); err != nil {
				log.Warnf("reload: %v", err)
			}
			return nil
		}
	}

	if m.feed != nil {
		feedKey(m.feed, msg)
	}
	return m, nil
}

func (m tuiModel) nudgeVolume(delta float64) (tea.Model, tea.Cmd) {
	m.volume = math.Max(0, math.Min(100, m.volume+delta))
	vol, ctl := m.volume, m.ctl
	return m, func() tea.Msg {
		ctl.SetVolume(vol)
		return nil
	}
}

// feedKey forwards a keystroke typed into the terminal. Terminals report no
// releases, so each keystroke is sent as a press followed by a release.
func feedKey(feed *keys.Feed, msg tea.KeyMsg) {
	if msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			feed.Press(keys.Char(r))
		}
		return
	}
	if k, ok := keys.Parse(msg.String()); ok {
		feed.Press(k)
	}
}

func (m tuiModel) View() string {
	var lines []string

	title := "clack"
	if m.title != "" {
		title += " · " + m.title
	}
	lines = append(lines, titleStyle.Render(title), "")

	lines = append(lines, stateStyles[m.state].Render(stateLabels[m.state]))
	lines = append(lines, m.message, "")

	lines = append(lines, fmt.Sprintf("volume %s %3.0f%%", renderVolumeBar(m.volume, 20), m.volume))
	lines = append(lines, dimStyle.Render(fmt.Sprintf("clips  %d/%d", m.clips, 2*keys.Buckets)))
	lines = append(lines, "", renderBuckets(m.lastBucket))
	if m.lastKey != "" {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("last %s → bucket %d (%d presses)", m.lastKey, m.lastBucket, m.presses)))
	} else {
		lines = append(lines, dimStyle.Render("no keys yet"))
	}
	lines = append(lines, "")

	help := helpKeyStyle.Render("Tab") + helpStyle.Render(" start/stop  ") +
		helpKeyStyle.Render("↑/↓") + helpStyle.Render(" volume  ") +
		helpKeyStyle.Render("ctrl+r") + helpStyle.Render(" reload  ") +
		helpKeyStyle.Render("esc") + helpStyle.Render(" quit")
	lines = append(lines, help)
	lines = append(lines, helpStyle.Render(shortcut.Combo+" toggles from anywhere · clack "+version))

	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

func renderVolumeBar(volume float64, width int) string {
	on := int(math.Round(volume / 100 * float64(width)))
	on = max(0, min(width, on))
	return barOnStyle.Render(strings.Repeat("█", on)) + barOffStyle.Render(strings.Repeat("░", width-on))
}

func renderBuckets(hot int) string {
	cells := make([]string, keys.Buckets)
	for b := range cells {
		style := bucketStyle
		if b == hot {
			style = bucketHot
		}
		cells[b] = style.Render(fmt.Sprintf("%d", b))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}
