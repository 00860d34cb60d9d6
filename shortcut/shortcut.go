// Package shortcut registers the global Ctrl+Shift+K start/stop toggle.
package shortcut

import (
	"context"
)

const Combo = "Ctrl+Shift+K"

// Hotkey provides global shortcut registration with press/release events.
type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Watch calls fn once per press of hk until ctx is done. Releases are drained
// and ignored.
func Watch(ctx context.Context, hk Hotkey, fn func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
			fn()
		case <-hk.Keyup():
		}
	}
}
