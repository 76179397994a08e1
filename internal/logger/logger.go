// Package logger is the tagged console logger used across the app.
// Every line carries a component tag; output goes to stdout and, when
// configured, to a rotating log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu   sync.Mutex
	base = newLogger()
	file *lumberjack.Logger
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	level, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// SetLevel changes the minimum level. Unknown names are rejected.
func SetLevel(name string) error {
	level, err := logrus.ParseLevel(strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	base.SetLevel(level)
	return nil
}

// SetFile mirrors output into a size-rotated file. An empty path turns the
// file sink off.
func SetFile(path string, maxSizeMB, maxAgeDays int) {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
	if path == "" {
		base.SetOutput(os.Stdout)
		return
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}
	file = &lumberjack.Logger{
		Filename: path,
		MaxSize:  maxSizeMB,
		MaxAge:   maxAgeDays,
		Compress: true,
	}
	base.SetOutput(io.MultiWriter(os.Stdout, file))
}

// Close flushes and closes the file sink, if any.
func Close() {
	SetFile("", 0, 0)
}

func tagged(tag string) *logrus.Entry {
	return base.WithField("component", tag)
}

// Debug logs a verbose diagnostic line.
func Debug(tag, msg string) {
	tagged(tag).Debug(msg)
}

// Info logs an informational line.
func Info(tag, msg string) {
	tagged(tag).Info(msg)
}

// Success logs a completed step.
func Success(tag, msg string) {
	tagged(tag).WithField("status", "ok").Info(msg)
}

// Warn logs a recoverable problem.
func Warn(tag, msg string) {
	tagged(tag).Warn(msg)
}

// Error logs a failure.
func Error(tag, msg string) {
	tagged(tag).Error(msg)
}

// Banner prints the startup line.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	base.WithField("version", version).Info("market-crafter")
}

// Section starts a named block of related output.
func Section(title string) {
	base.Info("── " + title + " ──")
}

// Stats logs a single key/value figure.
func Stats(key string, value interface{}) {
	base.WithField(key, value).Info("stat")
}
