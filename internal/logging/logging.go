// Package logging provides a small leveled logger with timestamped,
// colored output, matching the "leveled logger with timestamped colored
// output" ambient requirement of spec §4.E. The color scheme (red=error,
// yellow=warn, cyan=info, white=debug) mirrors
// original_source/src/main.rs's env_logger level-to-color mapping; the
// color library itself, github.com/fatih/color, is the one
// codefionn-scriptschnell/cmd/eval uses directly for leveled CLI output.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level is a log severity, ordered least to most severe.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgWhite),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

var levelName = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// Logger writes timestamped, colored, leveled lines to an underlying
// writer. The zero value is not usable; construct with New.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
	min Level
}

// New builds a Logger writing to os.Stderr that emits min and more severe
// levels.
func New(min Level) *Logger {
	return &Logger{out: os.Stderr, min: min}
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if level < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("02.01.2006 | 15:04:05")
	tag := levelColor[level].Sprintf("%-5s", levelName[level])
	fmt.Fprintf(l.out, "[%s] %s %s\n", ts, tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.logf(LevelError, format, args...) }
