package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"plateserver/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to per-level files and stdout.
type Logger struct {
	base      *logrus.Logger
	logDir    string
	files     []*os.File
	errWriter *io.PipeWriter
	mu        sync.Mutex
}

// NewLogger creates a Logger writing to stdout and the configured log directory.
func NewLogger(cfg *config.Config) *Logger {
	l, err := New(cfg.LogDirectory, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return l
}

// New creates a Logger whose console output goes to out. Each level is also
// appended to its own file inside logDir.
func New(logDir string, out io.Writer) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetOutput(out)
	base.SetLevel(logrus.InfoLevel)

	l := &Logger{base: base, logDir: logDir}

	levels := map[string][]logrus.Level{
		InfoFile:    {logrus.InfoLevel},
		WarningFile: {logrus.WarnLevel},
		ErrorFile:   {logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel},
	}
	for name, lv := range levels {
		file, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("open log file %s: %w", name, err)
		}
		l.files = append(l.files, file)
		base.AddHook(&writer.Hook{Writer: file, LogLevels: lv})
	}

	return l, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.base.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.base.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.base.Errorf(format, v...)
}

// WithFields returns an entry carrying structured fields, e.g. the request id.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.base.WithFields(fields)
}

// ErrorWriter exposes the error level as an io.Writer for net/http's server
// log. The writer is shared and closed by Close.
func (l *Logger) ErrorWriter() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.errWriter == nil {
		l.errWriter = l.base.WriterLevel(logrus.ErrorLevel)
	}
	return l.errWriter
}

// Directory returns the folder holding the per-level log files.
func (l *Logger) Directory() string {
	return l.logDir
}

// CleanLogs truncates the given log file.
func (l *Logger) CleanLogs(fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	if err := os.Truncate(filePath, 0); err != nil {
		l.Error("Error truncating %s: %v", fileName, err)
		return err
	}

	l.Info("Log file %s has been cleared", fileName)
	return nil
}

// Close stops the error writer and releases the underlying log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	if l.errWriter != nil {
		firstErr = l.errWriter.Close()
		l.errWriter = nil
	}
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
