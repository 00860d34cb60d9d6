package shortcut

import "clack/keys"

// comboKey is the non-modifier key of Combo.
const comboKey = 'k'

// comboTracker follows Combo on the raw key stream of one device.
type comboTracker struct {
	ctrl, shift, held bool
}

// feed reports down when Combo completes and up when its key is released.
func (t *comboTracker) feed(ev keys.RawEvent) (down, up bool) {
	k := keys.FromEvdev(ev.Code)
	pressed := ev.Phase == keys.Down
	switch {
	case k.Special == keys.LeftCtrl || k.Special == keys.RightCtrl:
		t.ctrl = pressed
	case k.Special == keys.LeftShift || k.Special == keys.RightShift:
		t.shift = pressed
	case k.Rune == comboKey:
		if pressed && !t.held && t.ctrl && t.shift {
			t.held = true
			return true, false
		}
		if !pressed && t.held {
			t.held = false
			return false, true
		}
	}
	return false, false
}

func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
