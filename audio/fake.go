package audio

import (
	"sync"
	"time"
)

// Played is one call recorded by FakeOutput.
type Played struct {
	Bytes  int
	Format Format
	Gain   float64
	At     time.Time
}

// FakeOutput records plays instead of rendering them.
type FakeOutput struct {
	// Delay simulates a clip that takes time to render.
	Delay time.Duration
	// Err is returned from every Play when set.
	Err error

	mu       sync.Mutex
	plays    []Played
	prepared []Format
	notify   chan struct{}
	closed   bool
}

func NewFakeOutput() *FakeOutput {
	return &FakeOutput{notify: make(chan struct{}, 1)}
}

func (f *FakeOutput) Prepare(format Format) error {
	f.mu.Lock()
	f.prepared = append(f.prepared, format)
	f.mu.Unlock()
	return nil
}

func (f *FakeOutput) Play(pcm []byte, format Format, gain float64) error {
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	f.mu.Lock()
	f.plays = append(f.plays, Played{Bytes: len(pcm), Format: format, Gain: gain, At: time.Now()})
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
	return f.Err
}

func (f *FakeOutput) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *FakeOutput) Plays() []Played {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Played(nil), f.plays...)
}

func (f *FakeOutput) Prepared() []Format {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Format(nil), f.prepared...)
}

// WaitPlays blocks until at least n plays were recorded or timeout elapses.
func (f *FakeOutput) WaitPlays(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if len(f.Plays()) >= n {
			return true
		}
		select {
		case <-f.notify:
		case <-deadline:
			return len(f.Plays()) >= n
		}
	}
}
