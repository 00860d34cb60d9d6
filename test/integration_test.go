//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("CLACK_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "CLACK_TEST_BIN not set; build clack and point CLACK_TEST_BIN at it")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// writeToneWAV writes a 16-bit mono PCM WAV by hand so the test depends only on the binary.
func writeToneWAV(path string, sampleRate int, durationS float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i := 0; i < numSamples; i++ {
		binary.LittleEndian.PutUint16(buf[headerSize+i*2:], uint16(int16(i%2000-1000)))
	}

	return os.WriteFile(path, buf, 0644)
}

func writePack(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := writeToneWAV(filepath.Join(dir, "keys.wav"), 16000, 2.0); err != nil {
		t.Fatal(err)
	}
	var defs []string
	for n := 1; n <= 10; n++ {
		defs = append(defs,
			fmt.Sprintf(`"%d": [%d, 60]`, n, n*150),
			fmt.Sprintf(`"%d-up": [%d, 60]`, n, n*150+70))
	}
	cfg := filepath.Join(dir, "sound_config.json")
	doc := `{"name": "integration", "sound": "keys.wav", "defines": {` + strings.Join(defs, ", ") + `}}`
	if err := os.WriteFile(cfg, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func runClack(t *testing.T, stdin string, args ...string) (out, logDir string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"--logpath", logDir}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	b, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("clack exited with error: %v\noutput: %s", err, b)
	}
	return string(b), logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func TestTypingPlaysClips(t *testing.T) {
	cfg := writePack(t)
	out, logDir := runClack(t, cmds("WAIT", "START", "PRESS a", "PRESS b", "PLAYS 4", "QUIT"),
		"--test", "--config", cfg)
	if !strings.Contains(out, "played=4") {
		t.Errorf("expected 4 plays:\n%s", out)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "sound_loaded") {
		t.Error("expected sound_loaded in diagnostics")
	}
	if !strings.Contains(diag, "session_end") {
		t.Error("expected session_end in diagnostics")
	}
}

func TestMissingConfigFails(t *testing.T) {
	out, _ := runClack(t, cmds("WAIT", "START", "QUIT"),
		"--test", "--config", filepath.Join(t.TempDir(), "none.json"))
	if !strings.Contains(out, "Error loading sound!") {
		t.Errorf("expected load failure status:\n%s", out)
	}
}

func TestExport(t *testing.T) {
	cfg := writePack(t)
	dir := t.TempDir()
	runClack(t, "", "export", "--config", cfg, "-o", dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 20 {
		t.Errorf("exported %d files, want 20", len(entries))
	}
}

func TestConfigCommand(t *testing.T) {
	out, _ := runClack(t, "", "config", "--config", writePack(t))
	if !strings.Contains(out, "name: integration") {
		t.Errorf("unexpected config output:\n%s", out)
	}
}
