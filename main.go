package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"clack/audio"
	"clack/config"
	"clack/engine"
	"clack/keys"
	"clack/log"
	"clack/shortcut"
	"clack/shutdown"
)

var version = "dev"

var (
	v        = config.NewViper()
	settings config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "clack",
	Short: "Mechanical keyboard sounds for every key press",
	Long: `clack plays a short clip sliced from one master recording each time a key
is pressed or released. Keys are spread over ten sound buckets.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.LoadSettings(v)
		if err != nil {
			return err
		}
		if cmd.Name() == "version" {
			return nil
		}
		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(settings)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", config.DefaultPath, "sound config file (json, yaml or toml)")
	pf.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	pf.Bool("debug", false, "verbose diagnostics log")

	f := rootCmd.Flags()
	f.Float64("volume", 100, "initial volume, 0-100")
	f.Int("workers", 16, "maximum clips playing at once")
	f.Bool("tui", term.IsTerminal(int(os.Stdin.Fd())), "run with terminal UI")
	f.Bool("autostart", false, "start listening as soon as the sound is loaded")
	f.Bool("shortcut", true, "toggle listening with "+shortcut.Combo)
	f.Bool("test", false, "test mode (headless, stdin-driven, no audio device)")

	_ = v.BindPFlags(pf)
	_ = v.BindPFlags(f)

	rootCmd.AddCommand(exportCmd, configCmd, doctorCmd, versionCmd)
}

func setupLogging() error {
	logPath, err := log.ResolveDir(settings.LogPath)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(logPath)
	log.SetDebug(settings.Debug)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
		return nil
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	return nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(s config.Settings) error {
	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	if v.GetBool("test") {
		return runTestMode(ctx, s, os.Stdin, os.Stdout)
	}

	out, err := audio.NewOutput()
	if err != nil {
		log.Errorf("audio output init error: %v", err)
		return fmt.Errorf("initializing audio output: %w", err)
	}
	defer out.Close()

	src := keys.NewSource()
	ctl := engine.New(engine.Options{
		ConfigPath: s.Config,
		Source:     src,
		Output:     out,
		Workers:    s.Workers,
		Volume:     s.Volume,
		Autostart:  s.Autostart,
	})
	defer ctl.Close()

	if s.Shortcut {
		hk := shortcut.New()
		if err := hk.Register(); err != nil {
			log.Warnf("shortcut register error: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: %s unavailable: %v\n", shortcut.Combo, err)
		} else {
			defer hk.Unregister()
			go shortcut.Watch(ctx, hk, func() {
				log.Info("shortcut_toggle")
				if err := ctl.Toggle(); err != nil {
					log.Warnf("toggle: %v", err)
				}
			})
		}
	}

	if s.TUI {
		feed, _ := src.(*keys.Feed)
		return runTUI(ctx, ctl, feed)
	}
	return runHeadless(ctx, ctl, s.Autostart)
}

func runTUI(ctx context.Context, ctl *engine.Controller, feed *keys.Feed) error {
	p := tea.NewProgram(newTUIModel(ctl, feed), tea.WithAltScreen(), tea.WithContext(ctx))
	ctl.OnStatus = func(s engine.Status) { p.Send(statusMsg(s)) }
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Errorf("TUI error: %v", err)
		return err
	}
	return nil
}

func runHeadless(ctx context.Context, ctl *engine.Controller, autostart bool) error {
	ctl.OnStatus = func(s engine.Status) {
		if s.Last != nil {
			return
		}
		fmt.Println(statusLine(s))
	}
	if err := ctl.Load(); err != nil {
		return err
	}
	if !autostart {
		fmt.Printf("Press %s to start and stop.\n", shortcut.Combo)
	}
	<-ctx.Done()
	fmt.Println()
	return nil
}

func statusLine(s engine.Status) string {
	msg := s.Message
	if s.Err != nil && !strings.Contains(msg, s.Err.Error()) {
		msg += " (" + s.Err.Error() + ")"
	}
	return msg
}
