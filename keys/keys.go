// Package keys maps physical keys to one of ten sound buckets and delivers
// key events from the platform to the dispatcher.
package keys

import (
	"fmt"
	"strings"
	"unicode"
)

// Buckets is the number of distinct sound pairs keys are hashed onto.
const Buckets = 10

type Phase uint8

const (
	Down Phase = iota
	Up
)

func (p Phase) String() string {
	if p == Up {
		return "up"
	}
	return "down"
}

// Special names keys that have no printable character.
type Special uint16

const (
	SpecialNone Special = iota
	Space
	Enter
	Tab
	Backspace
	Escape
	Delete
	Insert
	LeftShift
	RightShift
	LeftCtrl
	RightCtrl
	LeftAlt
	RightAlt
	LeftSuper
	RightSuper
	CapsLock
	ArrowUp
	ArrowDown
	ArrowLeft
	ArrowRight
	Home
	End
	PageUp
	PageDown
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12

	specialCount
)

var specialNames = [specialCount]string{
	SpecialNone: "",
	Space:       "space",
	Enter:       "enter",
	Tab:         "tab",
	Backspace:   "backspace",
	Escape:      "esc",
	Delete:      "delete",
	Insert:      "insert",
	LeftShift:   "shift",
	RightShift:  "shift_r",
	LeftCtrl:    "ctrl",
	RightCtrl:   "ctrl_r",
	LeftAlt:     "alt",
	RightAlt:    "alt_r",
	LeftSuper:   "super",
	RightSuper:  "super_r",
	CapsLock:    "caps_lock",
	ArrowUp:     "up",
	ArrowDown:   "down",
	ArrowLeft:   "left",
	ArrowRight:  "right",
	Home:        "home",
	End:         "end",
	PageUp:      "page_up",
	PageDown:    "page_down",
	F1:          "f1",
	F2:          "f2",
	F3:          "f3",
	F4:          "f4",
	F5:          "f5",
	F6:          "f6",
	F7:          "f7",
	F8:          "f8",
	F9:          "f9",
	F10:         "f10",
	F11:         "f11",
	F12:         "f12",
}

func (s Special) String() string {
	if s < specialCount {
		return specialNames[s]
	}
	return fmt.Sprintf("special(%d)", uint16(s))
}

// Key identifies a physical key. Rune is set for printable keys, Special for
// named keys, and Code carries the platform scancode when one is known.
type Key struct {
	Rune    rune
	Special Special
	Code    uint16
}

func Char(r rune) Key { return Key{Rune: r} }

func Named(s Special) Key { return Key{Special: s} }

func (k Key) String() string {
	switch {
	case k.Rune != 0:
		return string(k.Rune)
	case k.Special != SpecialNone:
		return k.Special.String()
	default:
		return fmt.Sprintf("code(%d)", k.Code)
	}
}

// Ordinal places every key in one value space: printable keys use their code
// point, named keys follow unicode.MaxRune and scancode-only keys follow the
// named keys.
func (k Key) Ordinal() uint64 {
	switch {
	case k.Rune != 0:
		return uint64(uint32(k.Rune))
	case k.Special != SpecialNone:
		return uint64(unicode.MaxRune) + 1 + uint64(k.Special)
	default:
		return uint64(unicode.MaxRune) + 1 + uint64(specialCount) + uint64(k.Code)
	}
}

// Bucket returns the sound bucket in [0, Buckets) for k.
func Bucket(k Key) int {
	return int(k.Ordinal() % Buckets)
}

// Event is one key transition reported by a Source.
type Event struct {
	Key   Key
	Phase Phase
}

func (e Event) String() string {
	if e.Phase == Up {
		return e.Key.String() + " up"
	}
	return e.Key.String()
}

var specialAliases = map[string]Special{
	"escape":   Escape,
	"return":   Enter,
	"pgup":     PageUp,
	"pgdown":   PageDown,
	"capslock": CapsLock,
	"shift_l":  LeftShift,
	"ctrl_l":   LeftCtrl,
	"alt_l":    LeftAlt,
}

// Parse accepts a single character or a special key name as printed by
// Key.String ("space", "enter", "f5").
func Parse(name string) (Key, bool) {
	if r := []rune(name); len(r) == 1 {
		return Char(r[0]), true
	}
	name = strings.ToLower(name)
	for s := Special(1); s < specialCount; s++ {
		if specialNames[s] == name {
			return Named(s), true
		}
	}
	if s, ok := specialAliases[name]; ok {
		return Named(s), true
	}
	return Key{}, false
}
