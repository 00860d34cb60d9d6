//go:build linux

package shortcut

import (
	"os"
	"sync"

	"clack/keys"
)

type evdevHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

// New watches every keyboard under /dev/input for Combo.
// Requires user to be in the 'input' group.
func New() Hotkey {
	return &evdevHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *evdevHotkey) Register() error {
	files, err := keys.OpenKeyboards()
	if err != nil {
		return err
	}
	h.files = files
	h.stop = make(chan struct{})
	for _, f := range files {
		t := &comboTracker{}
		go keys.ReadInputEvents(f, h.stop, func(ev keys.RawEvent) {
			switch down, up := t.feed(ev); {
			case down:
				signal(h.keydown)
			case up:
				signal(h.keyup)
			}
		})
	}
	return nil
}

func (h *evdevHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *evdevHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevHotkey) Keyup() <-chan struct{}   { return h.keyup }

// Diagnose checks that the shortcut can read keyboard devices.
func Diagnose() (string, error) {
	msg, err := keys.Diagnose()
	if err != nil {
		return "", err
	}
	return Combo + " via evdev, " + msg, nil
}
