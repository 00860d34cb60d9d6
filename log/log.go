package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const diagFileName = "diagnostics_log.txt"

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	debug    bool
	pid      int
	dir      string
)

// LoadMetrics describes one finished load+slice pipeline run.
type LoadMetrics struct {
	Sound      string
	SampleRate int
	Channels   int
	DurationMs int64
	Clips      int
	Skipped    int
	DecodeMs   float64
	SliceMs    float64
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: CLACK_LOG_PATH environment variable
	if envPath := os.Getenv("CLACK_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, path), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

// SetDebug enables debug-level events. Dropped key events are logged at this level.
func SetDebug(on bool) {
	logMu.Lock()
	debug = on
	if logReady {
		diagLog = diagLog.Level(level())
	}
	logMu.Unlock()
}

func level() zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, diagFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05.000",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).Level(level()).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Debugf(format string, args ...any) {
	if logReady {
		diagLog.Debug().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Load(m LoadMetrics) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("sound", m.Sound).
		Int("sample_rate", m.SampleRate).
		Int("channels", m.Channels).
		Int64("duration_ms", m.DurationMs).
		Int("clips", m.Clips).
		Int("skipped", m.Skipped).
		Float64("decode_ms", m.DecodeMs).
		Float64("slice_ms", m.SliceMs).
		Msg("sound_loaded")
}

func SessionStart(configPath, name string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("config", configPath).
		Str("name", name).
		Time("started", time.Now()).
		Msg("session_start")
}

func SessionEnd(dispatched, dropped uint64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Uint64("dispatched", dispatched).
		Uint64("dropped", dropped).
		Msg("session_end")
}
