package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir(""); SetDebug(false) })
	return tmp
}

func readDiag(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, diagFileName))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("CLACK_LOG_PATH", "/tmp/clack-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/clack-env-log" {
		t.Errorf("got %q, want /tmp/clack-env-log", got)
	}
}

func TestResolveDirFlagBeatsEnv(t *testing.T) {
	t.Setenv("CLACK_LOG_PATH", "/tmp/clack-env-log")
	got, err := ResolveDir("/tmp/flag-log")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/flag-log" {
		t.Errorf("got %q, want /tmp/flag-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("CLACK_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "clack") {
		t.Errorf("expected default directory under clack, got %q", got)
	}
}

func TestInitCreatesFile(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tmp, diagFileName)); err != nil {
		t.Errorf("%s not created: %v", diagFileName, err)
	}
}

func TestLogBeforeInitIsNoop(t *testing.T) {
	setupLogDir(t)
	Info("ignored")
	Errorf("ignored %d", 1)
	Load(LoadMetrics{Sound: "x"})
}

func TestLoadMetricsWritten(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Load(LoadMetrics{Sound: "keys.wav", SampleRate: 44100, Channels: 2, Clips: 20})
	Close()

	out := readDiag(t, tmp)
	for _, want := range []string{"sound_loaded", "keys.wav", "clips=20"} {
		if !strings.Contains(out, want) {
			t.Errorf("diagnostics missing %q, got: %q", want, out)
		}
	}
}

func TestDebugfFiltered(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Debugf("hidden %d", 1)
	SetDebug(true)
	Debugf("shown %d", 2)
	Close()

	out := readDiag(t, tmp)
	if strings.Contains(out, "hidden 1") {
		t.Errorf("debug event written while debug disabled: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("debug event missing after SetDebug(true): %q", out)
	}
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
