// Package logging builds the diagnostic loggers handed to decoder components.
// There is no package-level logger; callers construct one and inject it.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"k8s.io/klog/v2/textlogger"
)

// DefaultFile is the log file used when rotation is requested without a path.
const DefaultFile = "ctcdecode.log"

// DefaultMaxBytes is the size after which a RotatingFile starts over.
const DefaultMaxBytes = 1000000

// Level selects which records reach the sink.
type Level int

const (
	LevelNone Level = iota
	LevelError
	LevelInfo
	LevelDebug
)

var levelNames = map[string]Level{
	"none":  LevelNone,
	"error": LevelError,
	"info":  LevelInfo,
	"debug": LevelDebug,
}

// ParseLevel accepts none, error, info or debug.
func ParseLevel(s string) (Level, error) {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l, nil
	}
	return LevelNone, errors.Errorf("logging: unknown level %q", s)
}

func (l Level) String() string {
	for name, v := range levelNames {
		if v == l {
			return name
		}
	}
	return "unknown"
}

// New returns a logger writing to w. Info records are verbosity 0 and debug
// records are logger.V(1).
func New(level Level, w io.Writer) logr.Logger {
	if level <= LevelNone || w == nil {
		return logr.Discard()
	}
	v := 0
	if level >= LevelDebug {
		v = 1
	}
	l := textlogger.NewLogger(textlogger.NewConfig(
		textlogger.Verbosity(v),
		textlogger.Output(w),
	))
	if level == LevelError {
		return logr.New(errorOnlySink{l.GetSink()})
	}
	return l
}

// Open builds a logger for level. An empty path logs to stderr; otherwise
// records go to a RotatingFile at path. The returned closer releases the
// file and is never nil.
func Open(level Level, path string, maxBytes int64) (logr.Logger, io.Closer, error) {
	if level <= LevelNone {
		return logr.Discard(), nopCloser{}, nil
	}
	if path == "" {
		return New(level, os.Stderr), nopCloser{}, nil
	}
	rf, err := OpenRotatingFile(path, maxBytes)
	if err != nil {
		return logr.Discard(), nopCloser{}, err
	}
	return New(level, rf), rf, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// errorOnlySink drops every Info record, keeping Error.
type errorOnlySink struct {
	logr.LogSink
}

func (errorOnlySink) Enabled(int) bool { return false }

func (s errorOnlySink) WithValues(kv ...any) logr.LogSink {
	return errorOnlySink{s.LogSink.WithValues(kv...)}
}

func (s errorOnlySink) WithName(name string) logr.LogSink {
	return errorOnlySink{s.LogSink.WithName(name)}
}

// RotatingFile is an append-only file that is truncated and reopened once
// it grows past maxBytes. It is safe for concurrent use.
type RotatingFile struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	file     *os.File
	size     int64
}

// OpenRotatingFile opens path for appending. maxBytes <= 0 disables
// rotation.
func OpenRotatingFile(path string, maxBytes int64) (*RotatingFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat log file")
	}
	return &RotatingFile{path: path, maxBytes: maxBytes, file: f, size: info.Size()}, nil
}

// Write appends p, rotating first if the size limit has been reached.
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return 0, os.ErrClosed
	}
	if r.maxBytes > 0 && r.size >= r.maxBytes {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *RotatingFile) rotate() error {
	r.file.Close()
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		r.file = nil
		return errors.Wrap(err, "reopen log file")
	}
	r.file = f
	r.size = 0
	return nil
}

// Close closes the underlying file.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
