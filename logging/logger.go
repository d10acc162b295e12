// Package logging provides the structured JSON+console logger used
// across the server: session handling, world source ticking, and the
// REST/WebSocket transport all log through the package-level
// Info/Warn/Error/Fatal functions rather than a per-component logger.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents logging severity, gating which calls are emitted.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// DefaultMaxLogSize is the file size at which the log is rotated.
const DefaultMaxLogSize = 10 * 1024 * 1024

// DefaultMaxRotations is how many rotated log files are retained.
const DefaultMaxRotations = 3

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

var levelFromString = map[string]LogLevel{
	"DEBUG": DEBUG,
	"INFO":  INFO,
	"WARN":  WARN,
	"ERROR": ERROR,
	"FATAL": FATAL,
}

// Logger writes structured JSON entries to a rotating file and a
// human-readable line to stdout/stderr.
type Logger struct {
	mu           sync.RWMutex
	level        LogLevel
	file         *os.File
	processID    int
	logPath      string
	maxSize      int64
	maxRotations int
}

// LogEntry is one structured log record, as written to the log file.
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	ProcessID int                    `json:"process_id"`
	Level     string                 `json:"level"`
	Function  string                 `json:"function"`
	File      string                 `json:"file"`
	Line      int                    `json:"line"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// InitLogger initializes the package-level logger. Subsequent calls
// are no-ops; only the first call's logDir and level take effect.
func InitLogger(logDir string, level LogLevel) error {
	var err error
	once.Do(func() {
		defaultLogger, err = NewLogger(logDir, level)
	})
	return err
}

// NewLogger creates a standalone logger instance writing to logDir.
func NewLogger(logDir string, level LogLevel) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile := filepath.Join(logDir, "tickstream.log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		level:        level,
		file:         file,
		processID:    os.Getpid(),
		logPath:      logFile,
		maxSize:      DefaultMaxLogSize,
		maxRotations: DefaultMaxRotations,
	}, nil
}

// GetLogger returns the package-level logger, falling back to a fresh
// INFO-level logger writing to the system temp directory if InitLogger
// was never called.
func GetLogger() *Logger {
	if defaultLogger == nil {
		logger, _ := NewLogger(os.TempDir(), INFO)
		return logger
	}
	return defaultLogger
}

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetLevelFromString sets the logging level from its name (e.g. "warn").
func (l *Logger) SetLevelFromString(levelStr string) error {
	level, exists := levelFromString[strings.ToUpper(levelStr)]
	if !exists {
		return fmt.Errorf("invalid log level: %s", levelStr)
	}
	l.SetLevel(level)
	return nil
}

func (l *Logger) log(level LogLevel, message string, data map[string]interface{}) {
	l.mu.RLock()
	enabled := level >= l.level
	l.mu.RUnlock()
	if !enabled {
		return
	}

	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}
	funcName := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcName = filepath.Base(fn.Name())
	}
	fileName := filepath.Base(file)
	fileNameNoExt := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ProcessID: l.processID,
		Level:     levelNames[level],
		Function:  funcName,
		File:      fileNameNoExt,
		Line:      line,
		Message:   message,
		Data:      data,
	}

	l.writeEntry(entry, level)
}

func (l *Logger) Debug(message string, data map[string]interface{}) { l.log(DEBUG, message, data) }
func (l *Logger) Info(message string, data map[string]interface{})  { l.log(INFO, message, data) }
func (l *Logger) Warn(message string, data map[string]interface{})  { l.log(WARN, message, data) }
func (l *Logger) Error(message string, data map[string]interface{}) { l.log(ERROR, message, data) }

// Fatal logs at FATAL, which is never gated, then exits the process.
func (l *Logger) Fatal(message string, data map[string]interface{}) {
	l.log(FATAL, message, data)
	os.Exit(1)
}

func (l *Logger) writeEntry(entry LogEntry, level LogLevel) {
	consoleMsg := fmt.Sprintf("%s [%d] [%s] %s.%s:%d %s",
		entry.Timestamp[:19],
		entry.ProcessID,
		entry.Level,
		entry.Function,
		entry.File,
		entry.Line,
		entry.Message,
	)
	if len(entry.Data) > 0 {
		dataStr, _ := json.Marshal(entry.Data)
		consoleMsg += " " + string(dataStr)
	}

	if level >= ERROR {
		fmt.Fprintln(os.Stderr, consoleMsg)
	} else {
		fmt.Fprintln(os.Stdout, consoleMsg)
	}

	if l.file != nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if jsonData, err := json.Marshal(entry); err == nil {
			l.file.Write(jsonData)
			l.file.Write([]byte("\n"))
			l.checkRotation()
		}
	}
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Package-level convenience functions, using the default logger.

func Debug(message string, data map[string]interface{}) { GetLogger().Debug(message, data) }
func Info(message string, data map[string]interface{})  { GetLogger().Info(message, data) }
func Warn(message string, data map[string]interface{})  { GetLogger().Warn(message, data) }
func Error(message string, data map[string]interface{}) { GetLogger().Error(message, data) }
func Fatal(message string, data map[string]interface{}) { GetLogger().Fatal(message, data) }

func SetLevel(level LogLevel) error {
	GetLogger().SetLevel(level)
	return nil
}

func SetLevelFromString(levelStr string) error {
	return GetLogger().SetLevelFromString(levelStr)
}

// checkRotation rotates the log file once it exceeds maxSize.
func (l *Logger) checkRotation() {
	if l.file == nil || l.logPath == "" {
		return
	}
	stat, err := l.file.Stat()
	if err != nil {
		return
	}
	if stat.Size() >= l.maxSize {
		l.rotateLog()
	}
}

func (l *Logger) rotateLog() {
	l.file.Close()

	for i := l.maxRotations; i > 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", l.logPath, i-1)
		newPath := fmt.Sprintf("%s.%d", l.logPath, i)
		if i == l.maxRotations {
			os.Remove(newPath)
		}
		os.Rename(oldPath, newPath)
	}
	os.Rename(l.logPath, l.logPath+".1")

	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.file = nil
		return
	}
	l.file = file
	// The caller holds l.mu, so the entry is written directly instead
	// of going through l.log, which would block on the same lock.
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ProcessID: l.processID,
		Level:     levelNames[INFO],
		Function:  "logging.(*Logger).rotateLog",
		File:      "logger",
		Message:   "log rotation completed",
		Data: map[string]interface{}{
			"max_size_mb":   l.maxSize / (1024 * 1024),
			"max_rotations": l.maxRotations,
		},
	}
	if jsonData, err := json.Marshal(entry); err == nil {
		l.file.Write(append(jsonData, '\n'))
	}
}
