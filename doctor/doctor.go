package doctor

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/micmonay/keybd_event"

	"clack/audio"
	"clack/clip"
	"clack/config"
	"clack/keys"
	"clack/shortcut"
	"clack/shutdown"
)

const steps = 5

// Run executes diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(configPath string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("clack doctor - system diagnostics")
	fmt.Println("=================================")

	allPass := true

	sound, ok := checkConfig(configPath)
	allPass = allPass && ok

	var lib *clip.Library
	if sound != nil {
		lib, ok = checkDecode(sound)
		allPass = allPass && ok
	} else {
		skip(2, "Sound decode", "no config")
	}

	if !checkKeyboards() {
		allPass = false
	}
	if !checkKeyRoundTrip() {
		allPass = false
	}
	if lib != nil {
		allPass = checkOutput(lib) && allPass
	} else {
		skip(5, "Audio output", "no clips")
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		println("\nInterrupted")
		os.Exit(1)
	}()
}

func header(n int, name string) {
	fmt.Println()
	fmt.Printf("[%d/%d] %s\n", n, steps, name)
}

func skip(n int, name, why string) {
	header(n, name)
	fmt.Printf("  SKIP: %s\n", why)
}

func checkConfig(path string) (*config.Sound, bool) {
	header(1, "Sound config")
	sound, err := config.Load(path)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	fmt.Printf("  PASS: %s (%d clip definitions)\n", sound.Title(), len(sound.Definitions))
	if n := len(sound.Definitions); n < 2*keys.Buckets {
		fmt.Printf("  Warning: only %d of %d clips defined, some keys will be silent\n", n, 2*keys.Buckets)
	}
	return sound, true
}

func checkDecode(sound *config.Sound) (*clip.Library, bool) {
	header(2, "Sound decode")
	lib := clip.NewLibrary()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	if err := lib.Load(ctx, sound.Sound, sound.Definitions); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	rec := lib.Recording()
	fmt.Printf("  PASS: %s, %s, %v long, decoded in %v\n",
		sound.Sound, rec.Format, rec.Duration().Round(time.Millisecond), time.Since(start).Round(time.Millisecond))
	if err := lib.SliceErrors(); err != nil {
		fmt.Printf("  Warning: %v\n", err)
	}
	fmt.Printf("  %d clips ready\n", lib.Len())
	return lib, true
}

func checkKeyboards() bool {
	header(3, "Keyboard access")
	msg, err := keys.Diagnose()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: %s\n", msg)
	if msg, err := shortcut.Diagnose(); err == nil {
		fmt.Printf("  Shortcut: %s\n", msg)
	}
	return true
}

// checkKeyRoundTrip injects a synthetic K press and waits for the key source to see it.
func checkKeyRoundTrip() bool {
	header(4, "Key event round-trip")
	if runtime.GOOS != "linux" {
		fmt.Println("  SKIP: clack reads keys from its own terminal on this platform")
		return true
	}

	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		fmt.Printf("  FAIL: cannot create virtual keyboard: %v\n", err)
		return false
	}
	// the virtual device needs time to appear under /dev/input
	time.Sleep(2 * time.Second)

	seen := make(chan keys.Event, 8)
	src := keys.NewSource()
	if err := src.Start(func(e keys.Event) {
		select {
		case seen <- e:
		default:
		}
	}); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	defer src.Stop()

	kb.SetKeys(keybd_event.VK_K)
	if err := kb.Launching(); err != nil {
		fmt.Printf("  FAIL: cannot send key: %v\n", err)
		return false
	}
	defer resetTerminal()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case e := <-seen:
			if e.Key.Rune == 'k' {
				fmt.Printf("  PASS: received %v (bucket %d)\n", e, keys.Bucket(e.Key))
				return true
			}
		case <-timeout:
			fmt.Println("  FAIL: synthetic key press not received")
			return false
		}
	}
}

func checkOutput(lib *clip.Library) bool {
	header(5, "Audio output")
	c, ok := firstClip(lib)
	if !ok {
		fmt.Println("  SKIP: no clips to play")
		return true
	}

	out, err := audio.NewOutput()
	if err != nil {
		fmt.Printf("  FAIL: cannot open audio output: %v\n", err)
		return false
	}
	defer out.Close()

	if err := out.Prepare(c.Format); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	start := time.Now()
	if err := out.Play(c.PCM, c.Format, c.Gain()); err != nil {
		fmt.Printf("  FAIL: playback: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: played clip %s (%v) in %v\n", c.ID, c.Duration(), time.Since(start).Round(time.Millisecond))
	return true
}

func firstClip(lib *clip.Library) (*clip.Clip, bool) {
	clips := lib.Clips()
	if len(clips) == 0 {
		return nil, false
	}
	return clips[0], true
}
