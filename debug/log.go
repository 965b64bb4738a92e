// Package debug writes categorised diagnostics to a file. The TUI owns the
// terminal, so nothing here ever prints to stdout.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
)

var (
	enabled atomic.Bool
	logger  = newLogger(io.Discard)

	mu     sync.Mutex
	file   *os.File
	counts = make(map[string]int)
)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return l
}

// DefaultPath is debug.log next to the config file.
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "go-stepseq", "debug.log")
}

// Enable truncates path (DefaultPath when empty) and logs to it. Calling it
// again while enabled does nothing.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if enabled.Load() {
		return nil
	}
	if path == "" {
		path = DefaultPath()
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	file = f
	logger.SetOutput(f)
	enabled.Store(true)
	logger.WithField("cat", "debug").Infof("logging to %s", path)
	return nil
}

// EnableWriter logs to w instead of a file.
func EnableWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
	enabled.Store(true)
}

// Disable discards further output and closes the log file.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	enabled.Store(false)
	logger.SetOutput(io.Discard)
	if file != nil {
		file.Close()
		file = nil
	}
}

func write(level logrus.Level, category, format string, args []any) {
	if !enabled.Load() {
		return
	}
	logger.WithField("cat", category).Log(level, fmt.Sprintf(format, args...))
}

// Log records a debug line under category.
func Log(category, format string, args ...any) {
	write(logrus.DebugLevel, category, format, args)
}

// Warn records work that was skipped or failed but did not stop anything.
func Warn(category, format string, args ...any) {
	write(logrus.WarnLevel, category, format, args)
}

// LogEvery logs only every nth call with the same category and format,
// for per-frame or per-tick chatter.
func LogEvery(n int, category, format string, args ...any) {
	key := category + "\x00" + format
	mu.Lock()
	counts[key]++
	c := counts[key]
	mu.Unlock()
	if n > 0 && c%n == 0 {
		write(logrus.DebugLevel, category, format+" (every %d, count=%d)", append(args, n, c))
	}
}
