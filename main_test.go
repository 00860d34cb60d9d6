package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"clack/audio"
	"clack/config"
	"clack/dispatch"
	"clack/engine"
	"clack/keys"
)

// writePack writes a 2s mono recording and a config defining all 20 clips.
func writePack(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	format := audio.Format{SampleRate: 8000, Channels: 1}
	samples := make([]int16, 2*format.SampleRate)
	for i := range samples {
		samples[i] = int16((i * 13) % 8000)
	}
	f, err := os.Create(filepath.Join(dir, "keys.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if err := audio.WriteWAV(f, format, samples); err != nil {
		t.Fatal(err)
	}
	f.Close()

	defines := map[string][2]int{}
	for n := 1; n <= 10; n++ {
		defines[strconv.Itoa(n)] = [2]int{n * 150, 60}
		defines[strconv.Itoa(n)+"-up"] = [2]int{n*150 + 70, 60}
	}
	doc, err := json.Marshal(map[string]any{"name": "Test Pack", "sound": "keys.wav", "defines": defines})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "sound_config.json")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExportFlac(t *testing.T) {
	sound, err := config.Load(writePack(t))
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "out")
	n, err := exportClips(context.Background(), sound, dir, "flac")
	if err != nil {
		t.Fatalf("exportClips: %v", err)
	}
	if n != 20 {
		t.Fatalf("exported %d clips, want 20", n)
	}

	rec, err := audio.Decode(context.Background(), filepath.Join(dir, "0-up.flac"))
	if err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	// 60ms at 8kHz
	if rec.Frames() != 480 {
		t.Errorf("frames = %d, want 480", rec.Frames())
	}
	if rec.Format.SampleRate != 8000 || rec.Format.Channels != 1 {
		t.Errorf("format = %v", rec.Format)
	}
}

func TestExportWav(t *testing.T) {
	sound, err := config.Load(writePack(t))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if _, err := exportClips(context.Background(), sound, dir, "wav"); err != nil {
		t.Fatalf("exportClips: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "5.wav")); err != nil {
		t.Errorf("missing 5.wav: %v", err)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	if _, err := exportClips(context.Background(), &config.Sound{}, t.TempDir(), "mp3"); err == nil {
		t.Fatal("expected error for mp3")
	}
}

func runScript(t *testing.T, script string) string {
	t.Helper()
	var out bytes.Buffer
	s := config.Settings{Config: writePack(t), Workers: 4, Volume: 100}
	if err := runTestMode(context.Background(), s, strings.NewReader(script), &out); err != nil {
		t.Fatalf("runTestMode: %v", err)
	}
	return out.String()
}

func TestTestModeScript(t *testing.T) {
	out := runScript(t, "WAIT\nSTART\nPRESS a\nPRESS space\nPLAYS 4\nVOLUME 40\nSTOP\nPRESS b\nQUIT\n")

	for _, want := range []string{
		engine.MsgLoaded,
		engine.MsgRunning,
		"Pressed: a",
		"Volume set to 40%",
		engine.MsgStopped,
		"dispatched=4 dropped=0 played=4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTestModeStartBeforeLoad(t *testing.T) {
	out := runScript(t, "PRESS a\nWAIT\nQUIT\n")
	if !strings.Contains(out, "played=0") {
		t.Errorf("keys before start should be silent:\n%s", out)
	}
}

func TestTestModeShortcut(t *testing.T) {
	out := runScript(t, "WAIT\nSHORTCUT\nPRESS q\nPLAYS 2\nQUIT\n")
	if !strings.Contains(out, "played=2") {
		t.Errorf("shortcut should start listening:\n%s", out)
	}
}

func newTestModel(t *testing.T) (tuiModel, *keys.Feed) {
	t.Helper()
	feed := keys.NewFeed()
	ctl := engine.New(engine.Options{
		ConfigPath: writePack(t),
		Source:     feed,
		Output:     audio.NewFakeOutput(),
		Volume:     100,
	})
	t.Cleanup(ctl.Close)
	return newTUIModel(ctl, feed), feed
}

func TestTUIStatus(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(statusMsg{
		State:   engine.Listening,
		Message: "Pressed: a",
		Last:    &dispatch.Request{Key: keys.Char('a'), Bucket: 7, Phase: keys.Down},
	})
	m = next.(tuiModel)
	if m.state != engine.Listening || m.lastBucket != 7 || m.presses != 1 {
		t.Errorf("model = %+v", m)
	}
	view := m.View()
	for _, want := range []string{"LISTENING", "Pressed: a", "bucket 7"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTUITitleFromStatus(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(statusMsg{State: engine.AudioReady, Message: engine.MsgLoaded, Title: "Cherry MX Blue"})
	m = next.(tuiModel)
	if m.title != "Cherry MX Blue" {
		t.Errorf("title = %q", m.title)
	}
	if view := m.View(); !strings.Contains(view, "Cherry MX Blue") {
		t.Errorf("view missing title:\n%s", view)
	}
}

func TestTUIVolumeKeys(t *testing.T) {
	m, _ := newTestModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if v := next.(tuiModel).volume; v != 100 {
		t.Errorf("volume after up = %v, want 100", v)
	}
	next, cmd = next.Update(tea.KeyMsg{Type: tea.KeyDown})
	if v := next.(tuiModel).volume; v != 95 {
		t.Errorf("volume after down = %v, want 95", v)
	}
	cmd()
	if v := m.ctl.Volume(); v != 95 {
		t.Errorf("controller volume = %v, want 95", v)
	}
}

func TestTUIQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc should quit")
	}
}

func TestTUIFeedsKeys(t *testing.T) {
	m, feed := newTestModel(t)
	var got []keys.Event
	if err := feed.Start(func(e keys.Event) { got = append(got, e) }); err != nil {
		t.Fatal(err)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if len(got) != 4 {
		t.Fatalf("got %d events, want 4: %v", len(got), got)
	}
	if got[0].Key != keys.Char('x') || got[0].Phase != keys.Down || got[1].Phase != keys.Up {
		t.Errorf("rune events = %v", got[:2])
	}
	if got[2].Key != keys.Named(keys.Enter) {
		t.Errorf("enter event = %v", got[2])
	}
}

func TestRenderVolumeBar(t *testing.T) {
	bar := renderVolumeBar(50, 10)
	if strings.Count(bar, "█") != 5 || strings.Count(bar, "░") != 5 {
		t.Errorf("bar = %q", bar)
	}
	if strings.Count(renderVolumeBar(150, 10), "█") != 10 {
		t.Error("bar should clamp at full width")
	}
}
