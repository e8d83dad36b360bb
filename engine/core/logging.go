package core

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// LoggerOptions configures the application logger.
type LoggerOptions struct {
	Level        string
	File         string
	ReportCaller bool
}

// Logger is the application wide structured logger. It is created once by the
// process owner, handed down to every component and closed after the GPU
// context has been torn down.
type Logger struct {
	*log.Logger
	file    *os.File
	session string

	mu       sync.Mutex
	children []*log.Logger
}

func NewLogger(w io.Writer, opts LoggerOptions) (*Logger, error) {
	var file *os.File
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open log file %s", opts.File)
		}
		file = f
		w = io.MultiWriter(w, f)
	}

	level := log.DebugLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(opts.Level)
		if err != nil {
			if file != nil {
				file.Close()
			}
			return nil, errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
		level = l
	}

	base := log.NewWithOptions(w, log.Options{
		ReportCaller:    opts.ReportCaller,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly + ".000000",
		Prefix:          "Vulkan Testing",
		Level:           level,
	})
	session := uuid.NewString()

	return &Logger{
		Logger:  base.With("session", session),
		file:    file,
		session: session,
	}, nil
}

// NewDiscardLogger returns a logger that drops everything, handy for tests.
func NewDiscardLogger() *Logger {
	l, _ := NewLogger(io.Discard, LoggerOptions{Level: "debug"})
	return l
}

func (l *Logger) Session() string {
	return l.session
}

// Named returns a child logger whose lines carry the given prefix. The child
// follows later SetLevel calls on l.
func (l *Logger) Named(prefix string) *log.Logger {
	child := l.Logger.WithPrefix(prefix)
	l.mu.Lock()
	l.children = append(l.children, child)
	l.mu.Unlock()
	return child
}

func (l *Logger) SetLevel(level log.Level) {
	l.Logger.SetLevel(level)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, child := range l.children {
		child.SetLevel(level)
	}
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}
