// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	FATAL
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARNING:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLogLevel maps "debug", "info", "warn", "error" to a LogLevel, defaulting to INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Logger is a structured logger backed by zap
type Logger struct {
	mu      sync.RWMutex
	base    *zap.Logger
	sugar   *zap.SugaredLogger
	level   zap.AtomicLevel
	file    *os.File
	enabled bool
	dev     bool
	fields  []interface{}
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = newLogger(false)
	})
	return globalLogger
}

// NewNopLogger returns a logger that discards everything, for tests
func NewNopLogger() *Logger {
	l := &Logger{base: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.InfoLevel), enabled: true}
	l.sugar = l.base.Sugar()
	return l
}

func newLogger(dev bool) *Logger {
	l := &Logger{
		level:   zap.NewAtomicLevelAt(zapcore.InfoLevel),
		enabled: true,
		dev:     dev,
	}
	l.rebuild(nil)
	return l
}

func (l *Logger) encoderConfig() zapcore.EncoderConfig {
	if l.dev {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// rebuild must be called with l.mu held (or before publication)
func (l *Logger) rebuild(file *os.File) {
	encCfg := l.encoderConfig()
	var consoleEnc zapcore.Encoder
	if l.dev {
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), l.level)}
	if file != nil {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), l.level))
	}
	l.base = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2))
	l.sugar = l.base.Sugar()
}

// InitLogger initializes the logger with a log file
func InitLogger(logFile string) error {
	logger := GetLogger()

	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if logger.file != nil {
		_ = logger.base.Sync()
		logger.file.Close()
	}
	logger.file = file
	logger.rebuild(file)
	return nil
}

// SetDevelopment switches between console (development) and JSON (production) output
func (l *Logger) SetDevelopment(dev bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dev == dev {
		return
	}
	l.dev = dev
	l.rebuild(l.file)
}

// SetLogLevel sets the minimum level for logging
func (l *Logger) SetLogLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// Enable enables or disables logging
func (l *Logger) Enable(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// With returns a child logger that always carries the given fields
func (l *Logger) With(fields map[string]interface{}) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	child := &Logger{
		base:    l.base,
		sugar:   l.sugar,
		level:   l.level,
		enabled: l.enabled,
		dev:     l.dev,
	}
	child.fields = append(append([]interface{}{}, l.fields...), keyvals(fields)...)
	return child
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.base.Sync()
}

var secretKeys = []string{"api_key", "apikey", "token", "secret", "password", "xi-api-key", "authorization"}

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// keyvals flattens a field map into sorted key/value pairs, redacting secrets
func keyvals(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		v := fields[k]
		if isSecretKey(k) {
			v = "[REDACTED]"
		} else if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		out = append(out, k, v)
	}
	return out
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	l.mu.RLock()
	enabled := l.enabled
	sugar := l.sugar
	l.mu.RUnlock()
	if !enabled {
		return
	}

	kv := append(append([]interface{}{}, l.fields...), keyvals(fields)...)
	switch level {
	case DEBUG:
		sugar.Debugw(message, kv...)
	case INFO:
		sugar.Infow(message, kv...)
	case WARNING:
		sugar.Warnw(message, kv...)
	case ERROR:
		sugar.Errorw(message, kv...)
	case FATAL:
		sugar.Fatalw(message, kv...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(DEBUG, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(INFO, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(WARNING, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(ERROR, message, fields)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, fields map[string]interface{}) {
	l.log(FATAL, message, fields)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(DEBUG, fmt.Sprintf(format, args...), nil)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(WARNING, fmt.Sprintf(format, args...), nil)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(format, args...), nil)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(FATAL, fmt.Sprintf(format, args...), nil)
}
