package keys

import (
	"errors"
	"sync"
)

// Source reports key transitions once started. Start must not block; the
// callback may be invoked from any goroutine and must not block either.
type Source interface {
	Start(fn func(Event)) error
	Stop()
}

var ErrNoCallback = errors.New("key source started without a callback")

// Feed is a Source driven by the caller. The terminal UI uses it on platforms
// without a global key reader, and tests use it to simulate typing.
type Feed struct {
	mu sync.Mutex
	fn func(Event)
}

func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Start(fn func(Event)) error {
	if fn == nil {
		return ErrNoCallback
	}
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	return nil
}

func (f *Feed) Stop() {
	f.mu.Lock()
	f.fn = nil
	f.mu.Unlock()
}

func (f *Feed) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fn != nil
}

// Send delivers e and reports whether a callback was registered.
func (f *Feed) Send(e Event) bool {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(e)
	return true
}

// Press sends a down event followed by an up event for k.
func (f *Feed) Press(k Key) bool {
	if !f.Send(Event{Key: k, Phase: Down}) {
		return false
	}
	return f.Send(Event{Key: k, Phase: Up})
}
