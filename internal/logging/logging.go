package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It discards output until Init is called.
var Logger = newDiscard()

var once sync.Once

type Options struct {
	// Dir receives dshbd.log; empty disables the file sink.
	Dir    string
	Level  string
	Stderr bool
}

func newDiscard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Init configures Logger once per process. It returns the rotating file sink (nil when disabled)
// so callers can close it on exit.
func Init(opts Options) io.Closer {
	var sink *lumberjack.Logger
	once.Do(func() {
		var outs []io.Writer
		if strings.TrimSpace(opts.Dir) != "" {
			if err := os.MkdirAll(opts.Dir, 0o755); err == nil {
				sink = &lumberjack.Logger{
					Filename:   filepath.Join(opts.Dir, "dshbd.log"),
					MaxSize:    10, // megabytes
					MaxBackups: 3,
					MaxAge:     28, // days
					Compress:   true,
				}
				outs = append(outs, sink)
			}
		}
		if opts.Stderr || os.Getenv("DSHBD_LOG_STDERR") == "1" {
			outs = append(outs, os.Stderr)
		}
		switch len(outs) {
		case 0:
			Logger.SetOutput(io.Discard)
		case 1:
			Logger.SetOutput(outs[0])
		default:
			Logger.SetOutput(io.MultiWriter(outs...))
		}
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
		Logger.SetLevel(ParseLevel(opts.Level))
		Logger.WithField("component", "logging").Debug("logger initialized")
	})
	if sink == nil {
		return nil
	}
	return sink
}

// ParseLevel maps a config/env level to logrus, defaulting to info.
func ParseLevel(s string) logrus.Level {
	if env := strings.TrimSpace(os.Getenv("DSHBD_LOG_LEVEL")); env != "" {
		s = env
	}
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// Discard returns an entry that writes nowhere; handy for tests and zero-value wiring.
func Discard() *logrus.Entry {
	return newDiscard().WithField("component", "discard")
}
