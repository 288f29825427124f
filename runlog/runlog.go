package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/finrecon", "runlog")

// ErrClosed is returned by Write after the Log is closed
var ErrClosed = os.ErrClosed

// DefaultPrefix is the prefix of the log file name
const DefaultPrefix = "comparison_log"

// FileName returns <prefix>_YYYYMMDD_HHMM.txt
func FileName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.txt", prefix, t.Format("20060102_1504"))
}

// Log is a writer that duplicates the output to the console and the file
type Log struct {
	console io.Writer
	file    *os.File
	path    string

	lock      sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Open creates the log file in the dir
func Open(dir, prefix string, now time.Time, console io.Writer) (*Log, error) {
	if dir == "" {
		dir = "."
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if console == nil {
		console = io.Discard
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create log folder")
	}

	path := filepath.Join(dir, FileName(prefix, now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create log file")
	}

	logger.KV(xlog.DEBUG, "status", "opened", "path", path)

	return &Log{
		console: console,
		file:    f,
		path:    path,
	}, nil
}

// Path returns the path of the log file
func (l *Log) Path() string {
	return l.path
}

// Write writes p to the console, then to the file.
func (l *Log) Write(p []byte) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.closed {
		return 0, ErrClosed
	}

	// console errors do not stop the capture
	_, _ = l.console.Write(p)
	return l.file.Write(p)
}

// Close closes the file, only the first call has effect
func (l *Log) Close() error {
	l.closeOnce.Do(func() {
		l.lock.Lock()
		defer l.lock.Unlock()

		l.closed = true
		if err := l.file.Sync(); err != nil {
			logger.KV(xlog.WARNING, "reason", "sync", "path", l.path, "err", err.Error())
		}
		l.closeErr = l.file.Close()
	})
	return l.closeErr
}

// Capture opens the log, runs fn with the log writer and closes the log,
// on both error and panic paths.
// The panic of fn is raised again after the log is closed.
func Capture(dir, prefix string, now time.Time, console io.Writer, fn func(w *Log) error) (err error) {
	l, err := Open(dir, prefix, now, console)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(l, "panic: %v\n", r)
			_ = l.Close()
			panic(r)
		}
		cerr := l.Close()
		if err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "failed to close log file")
		}
	}()

	if err = fn(l); err != nil {
		fmt.Fprintf(l, "ERROR: %s\n", err.Error())
	}
	return err
}
