package doctor

import (
	"os"
	"path/filepath"
	"testing"

	"clack/audio"
)

func writePack(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "keys.wav"))
	if err != nil {
		t.Fatal(err)
	}
	format := audio.Format{SampleRate: 8000, Channels: 1}
	if err := audio.WriteWAV(f, format, make([]int16, 8000)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg := filepath.Join(dir, "sound_config.json")
	doc := `{"sound": "keys.wav", "defines": {"1": [0, 100], "1-up": [100, 100], "2": [900, 500]}}`
	if err := os.WriteFile(cfg, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestCheckConfigMissing(t *testing.T) {
	if _, ok := checkConfig(filepath.Join(t.TempDir(), "nope.json")); ok {
		t.Fatal("expected failure for missing config")
	}
}

func TestCheckConfigAndDecode(t *testing.T) {
	sound, ok := checkConfig(writePack(t))
	if !ok {
		t.Fatal("checkConfig failed")
	}
	lib, ok := checkDecode(sound)
	if !ok {
		t.Fatal("checkDecode failed")
	}
	// "2" runs past the end of the 1s recording
	if lib.Len() != 2 {
		t.Errorf("clips = %d, want 2", lib.Len())
	}
	if _, ok := firstClip(lib); !ok {
		t.Error("firstClip found nothing")
	}
}
