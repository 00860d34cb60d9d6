//go:build linux

package keys

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"clack/log"
)

type evdevSource struct {
	mu    sync.Mutex
	files []*os.File
	stop  chan struct{}
}

// NewSource reads every keyboard under /dev/input.
// Requires user to be in the 'input' group.
func NewSource() Source {
	return &evdevSource{}
}

func (s *evdevSource) Start(fn func(Event)) error {
	if fn == nil {
		return ErrNoCallback
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	files, err := OpenKeyboards()
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	for _, f := range files {
		go ReadInputEvents(f, stop, func(r RawEvent) { fn(r.Event()) })
	}
	s.files = files
	s.stop = stop
	log.Infof("listening on %d keyboard(s)", len(files))
	return nil
}

// OpenKeyboards opens every keyboard device that can be read. It fails when
// none can.
func OpenKeyboards() ([]*os.File, error) {
	keyboards, err := FindKeyboards()
	if err != nil {
		return nil, fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return nil, fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var files []*os.File
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			log.Debugf("open %s: %v", path, err)
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return files, nil
}

func (s *evdevSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	for _, f := range s.files {
		f.Close()
	}
	s.files = nil
	s.stop = nil
}

// FindKeyboards lists /dev/input event nodes that advertise a keyboard-sized key bitmap.
func FindKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	// Real keyboards have long key capability bitmaps
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

// Diagnose checks evdev access and returns a status message.
func Diagnose() (string, error) {
	keyboards, err := FindKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}
	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
