package keys

import (
	"testing"
	"unicode"
)

func TestBucketPrintableIsCodePointMod10(t *testing.T) {
	for _, r := range "abcdefghijklmnopqrstuvwxyz0123456789;'[],./`" {
		if got, want := Bucket(Char(r)), int(r)%10; got != want {
			t.Errorf("Bucket(%q) = %d, want %d", r, got, want)
		}
	}
	if got := Bucket(Char('A')); got != 5 {
		t.Errorf("Bucket('A') = %d, want 5", got)
	}
}

func TestBucketRange(t *testing.T) {
	var all []Key
	for r := rune(0); r < 0x3000; r++ {
		all = append(all, Char(r))
	}
	all = append(all, Char(unicode.MaxRune))
	for s := Special(0); s <= specialCount+5; s++ {
		all = append(all, Named(s))
	}
	for c := uint16(0); c < 1024; c++ {
		all = append(all, Key{Code: c})
	}
	for _, k := range all {
		if b := Bucket(k); b < 0 || b >= Buckets {
			t.Fatalf("Bucket(%v) = %d out of range", k, b)
		}
	}
}

func TestBucketDeterministic(t *testing.T) {
	keys := []Key{Char('x'), Named(Space), Named(F12), {Code: 300}, FromEvdev(30)}
	for _, k := range keys {
		first := Bucket(k)
		for i := 0; i < 100; i++ {
			if got := Bucket(k); got != first {
				t.Fatalf("Bucket(%v) changed from %d to %d", k, first, got)
			}
		}
	}
}

func TestOrdinalSpacesDisjoint(t *testing.T) {
	maxChar := Char(unicode.MaxRune).Ordinal()
	firstSpecial := Named(Space).Ordinal()
	if firstSpecial <= maxChar {
		t.Errorf("special ordinal %d overlaps characters (max %d)", firstSpecial, maxChar)
	}
	lastSpecial := Named(specialCount - 1).Ordinal()
	firstCode := Key{Code: 1}.Ordinal()
	if firstCode <= lastSpecial {
		t.Errorf("scancode ordinal %d overlaps specials (last %d)", firstCode, lastSpecial)
	}
}

func TestRunePreferredOverCode(t *testing.T) {
	k := FromEvdev(30)
	if k.Rune != 'a' || k.Code != 30 {
		t.Fatalf("FromEvdev(30) = %+v", k)
	}
	if Bucket(k) != Bucket(Char('a')) {
		t.Errorf("evdev 'a' bucket %d != char 'a' bucket %d", Bucket(k), Bucket(Char('a')))
	}
}

func TestFromEvdev(t *testing.T) {
	tests := []struct {
		code uint16
		want Key
	}{
		{2, Key{Rune: '1', Code: 2}},
		{11, Key{Rune: '0', Code: 11}},
		{57, Key{Special: Space, Code: 57}},
		{28, Key{Special: Enter, Code: 28}},
		{103, Key{Special: ArrowUp, Code: 103}},
		{240, Key{Code: 240}},
	}
	for _, tt := range tests {
		if got := FromEvdev(tt.code); got != tt.want {
			t.Errorf("FromEvdev(%d) = %+v, want %+v", tt.code, got, tt.want)
		}
	}
}

func TestKeyString(t *testing.T) {
	if s := Char('q').String(); s != "q" {
		t.Errorf("Char('q') = %q", s)
	}
	if s := Named(Space).String(); s != "space" {
		t.Errorf("Named(Space) = %q", s)
	}
	if s := (Key{Code: 240}).String(); s != "code(240)" {
		t.Errorf("Key{Code: 240} = %q", s)
	}
	if s := (Event{Key: Char('q'), Phase: Up}).String(); s != "q up" {
		t.Errorf("up event = %q", s)
	}
}

func TestFeed(t *testing.T) {
	f := NewFeed()
	if f.Press(Char('a')) {
		t.Fatal("Press before Start should not deliver")
	}

	var got []Event
	if err := f.Start(func(e Event) { got = append(got, e) }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !f.Active() {
		t.Fatal("expected feed active")
	}
	f.Press(Char('a'))
	f.Stop()
	f.Press(Char('b'))

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2: %v", len(got), got)
	}
	if got[0].Phase != Down || got[1].Phase != Up {
		t.Errorf("phases = %v, %v", got[0].Phase, got[1].Phase)
	}
}

func TestFeedRequiresCallback(t *testing.T) {
	if err := NewFeed().Start(nil); err != ErrNoCallback {
		t.Fatalf("Start(nil) = %v, want ErrNoCallback", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Key
		ok   bool
	}{
		{"a", Char('a'), true},
		{"é", Char('é'), true},
		{"space", Named(Space), true},
		{"Enter", Named(Enter), true},
		{"pgdown", Named(PageDown), true},
		{"f11", Named(F11), true},
		{"hyper", Key{}, false},
		{"", Key{}, false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Parse(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRoundTripsString(t *testing.T) {
	for s := Special(1); s < specialCount; s++ {
		k, ok := Parse(Named(s).String())
		if !ok || k.Special != s {
			t.Errorf("Parse(%q) = %+v, %v", Named(s).String(), k, ok)
		}
	}
}
