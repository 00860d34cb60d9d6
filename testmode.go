package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"clack/audio"
	"clack/config"
	"clack/engine"
	"clack/keys"
	"clack/log"
	"clack/shortcut"
)

// runTestMode drives the engine from line commands on in, with keys fed
// programmatically and plays recorded instead of rendered:
//
//	WAIT          block until the sound has loaded
//	START, STOP   control listening
//	SHORTCUT      simulate the global toggle shortcut
//	PRESS <key>   down + up; DOWN <key> / UP <key> for one phase
//	VOLUME <pct>  set volume
//	RELOAD        reload the sound pack
//	SLEEP <ms>    pause the script
//	PLAYS <n>     wait up to 2s for n recorded plays
//	QUIT          print stats and exit
func runTestMode(ctx context.Context, s config.Settings, in io.Reader, w io.Writer) error {
	out := &syncWriter{w: w}
	feed := keys.NewFeed()
	fake := audio.NewFakeOutput()
	ctl := engine.New(engine.Options{
		ConfigPath: s.Config,
		Source:     feed,
		Output:     fake,
		Workers:    s.Workers,
		Volume:     s.Volume,
		Autostart:  s.Autostart,
	})
	defer ctl.Close()
	ctl.OnStatus = func(st engine.Status) {
		fmt.Fprintln(out, statusLine(st))
	}

	hk := shortcut.NewFake()
	go shortcut.Watch(ctx, hk, func() { _ = ctl.Toggle() })

	if err := ctl.Load(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.ToUpper(cmd) {
		case "":
		case "WAIT":
			_ = ctl.Wait(ctx)
		case "START":
			_ = ctl.Start()
		case "STOP":
			ctl.Stop()
		case "SHORTCUT":
			hk.SimKeydown()
			hk.SimKeyup()
			// let Watch run the toggle before the next command
			time.Sleep(50 * time.Millisecond)
		case "PRESS", "DOWN", "UP":
			k, ok := keys.Parse(arg)
			if !ok {
				fmt.Fprintf(out, "unknown key %q\n", arg)
				continue
			}
			switch strings.ToUpper(cmd) {
			case "PRESS":
				feed.Press(k)
			case "DOWN":
				feed.Send(keys.Event{Key: k, Phase: keys.Down})
			case "UP":
				feed.Send(keys.Event{Key: k, Phase: keys.Up})
			}
		case "VOLUME":
			if pct, err := strconv.ParseFloat(arg, 64); err == nil {
				ctl.SetVolume(pct)
			}
		case "RELOAD":
			_ = ctl.Reload()
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "PLAYS":
			if n, err := strconv.Atoi(arg); err == nil {
				fake.WaitPlays(n, 2*time.Second)
			}
		case "QUIT":
			return printStats(out, ctl, fake)
		default:
			log.Warnf("test mode: unknown command %q", line)
			fmt.Fprintf(out, "unknown command %q\n", line)
		}
	}
	return printStats(out, ctl, fake)
}

func printStats(out io.Writer, ctl *engine.Controller, fake *audio.FakeOutput) error {
	dispatched, dropped := ctl.Stats()
	_, err := fmt.Fprintf(out, "dispatched=%d dropped=%d played=%d\n", dispatched, dropped, len(fake.Plays()))
	return err
}

// syncWriter serializes status lines written from engine goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
