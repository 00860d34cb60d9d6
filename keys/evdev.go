package keys

import (
	"encoding/binary"
	"io"
)

// Linux input event codes (linux/input-event-codes.h) for an unshifted US layout.
var evdevChars = map[uint16]rune{
	2: '1', 3: '2', 4: '3', 5: '4', 6: '5', 7: '6', 8: '7', 9: '8', 10: '9', 11: '0',
	12: '-', 13: '=',
	16: 'q', 17: 'w', 18: 'e', 19: 'r', 20: 't', 21: 'y', 22: 'u', 23: 'i', 24: 'o', 25: 'p',
	26: '[', 27: ']',
	30: 'a', 31: 's', 32: 'd', 33: 'f', 34: 'g', 35: 'h', 36: 'j', 37: 'k', 38: 'l',
	39: ';', 40: '\'', 41: '`', 43: '\\',
	44: 'z', 45: 'x', 46: 'c', 47: 'v', 48: 'b', 49: 'n', 50: 'm',
	51: ',', 52: '.', 53: '/',
	55: '*', 74: '-', 78: '+',
}

var evdevSpecials = map[uint16]Special{
	1:   Escape,
	14:  Backspace,
	15:  Tab,
	28:  Enter,
	29:  LeftCtrl,
	42:  LeftShift,
	54:  RightShift,
	56:  LeftAlt,
	57:  Space,
	58:  CapsLock,
	59:  F1,
	60:  F2,
	61:  F3,
	62:  F4,
	63:  F5,
	64:  F6,
	65:  F7,
	66:  F8,
	67:  F9,
	68:  F10,
	87:  F11,
	88:  F12,
	96:  Enter,
	97:  RightCtrl,
	100: RightAlt,
	102: Home,
	103: ArrowUp,
	104: PageUp,
	105: ArrowLeft,
	106: ArrowRight,
	107: End,
	108: ArrowDown,
	109: PageDown,
	110: Insert,
	111: Delete,
	125: LeftSuper,
	126: RightSuper,
}

// FromEvdev translates an evdev key code. Unknown codes keep only Code.
func FromEvdev(code uint16) Key {
	k := Key{Code: code}
	if r, ok := evdevChars[code]; ok {
		k.Rune = r
	} else if s, ok := evdevSpecials[code]; ok {
		k.Special = s
	}
	return k
}

const (
	evKey      = 1
	keyRelease = 0
	keyPress   = 1
)

// InputEventSize is sizeof(struct input_event) on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4).
const InputEventSize = 24

// RawEvent is one key press or release read from an input device.
type RawEvent struct {
	Code  uint16
	Phase Phase
}

func (r RawEvent) Event() Event {
	return Event{Key: FromEvdev(r.Code), Phase: r.Phase}
}

// decodeInputEvent parses one input_event record. Non-key events and
// auto-repeats are rejected.
func decodeInputEvent(rec []byte) (RawEvent, bool) {
	if binary.LittleEndian.Uint16(rec[16:]) != evKey {
		return RawEvent{}, false
	}
	code := binary.LittleEndian.Uint16(rec[18:])
	switch int32(binary.LittleEndian.Uint32(rec[20:])) {
	case keyPress:
		return RawEvent{Code: code, Phase: Down}, true
	case keyRelease:
		return RawEvent{Code: code, Phase: Up}, true
	}
	return RawEvent{}, false
}

// ReadInputEvents reads whole input_event records from r and calls fn for
// each key press and release until r fails or stop is closed. stop is
// checked before every callback.
func ReadInputEvents(r io.Reader, stop <-chan struct{}, fn func(RawEvent)) {
	buf := make([]byte, InputEventSize*16)
	for {
		n, err := r.Read(buf)
		for i := 0; i+InputEventSize <= n; i += InputEventSize {
			ev, ok := decodeInputEvent(buf[i : i+InputEventSize])
			if !ok {
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			fn(ev)
		}
		if err != nil {
			return
		}
	}
}
