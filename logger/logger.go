package logger

import (
	"io"
	"log"
	"os"

	"github.com/cockroachdb/errors"
)

type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "err"
	}
	return "unknown"
}

// Sink accepts tagged, leveled diagnostics. Implementations decide where the
// text ends up; callers never inspect the storage behind it.
type Sink interface {
	Log(area, text string, level Level)
}

// Logger writes one line per message, formatted as "[area][level]: text".
type Logger struct {
	out  *log.Logger
	file *os.File
}

// New returns a Logger writing to stdout.
func New() *Logger {
	return NewWriter(os.Stdout)
}

func NewWriter(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", 0)}
}

// NewFile returns a Logger writing to the named file, truncating it.
func NewFile(path string) (*Logger, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "logger: cannot open %s", path)
	}

	return &Logger{out: log.New(file, "", 0), file: file}, nil
}

func (l *Logger) Log(area, text string, level Level) {
	l.out.Printf("[%s][%s]: %s", area, level, text)
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil
	return err
}
