package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger represents the application logger
type Logger struct {
	*logrus.Logger
	mu sync.RWMutex
}

// LogLevel represents log levels
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

// LogFormat represents log output formats
type LogFormat string

const (
	JSONFormat LogFormat = "json"
	TextFormat LogFormat = "text"
)

// Config represents logger configuration
type Config struct {
	Level  LogLevel
	Format LogFormat
	Output string // file path or "stdout"
}

var (
	instance *Logger
	once     sync.Once
)

// Init initializes the global logger
func Init() {
	once.Do(func() {
		instance = NewLogger(configFromEnv())
	})
}

// NewLogger creates a new logger instance
func NewLogger(config Config) *Logger {
	logger := &Logger{
		Logger: logrus.New(),
	}

	logger.SetLevel(logrusLevel(config.Level))

	if config.Format == TextFormat {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	logger.SetOutput(resolveOutput(config.Output))

	return logger
}

// resolveOutput opens the configured log destination, falling back to stdout
func resolveOutput(output string) io.Writer {
	if output == "" || output == "stdout" {
		return os.Stdout
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		log.Printf("Failed to create log directory: %v", err)
		return os.Stdout
	}

	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open log file: %v", err)
		return os.Stdout
	}

	if os.Getenv("APP_ENV") == "development" {
		return io.MultiWriter(file, os.Stdout)
	}

	return file
}

// configFromEnv returns logger configuration from environment
func configFromEnv() Config {
	config := Config{
		Level:  InfoLevel,
		Format: JSONFormat,
		Output: "stdout",
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = LogLevel(strings.ToLower(level))
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Format = LogFormat(strings.ToLower(format))
	}

	if output := os.Getenv("LOG_OUTPUT"); output != "" {
		config.Output = output
	}

	return config
}

func logrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Global logger functions

func Debug(args ...interface{}) {
	if instance != nil {
		instance.Debug(args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if instance != nil {
		instance.Debugf(format, args...)
	}
}

func Info(args ...interface{}) {
	if instance != nil {
		instance.Info(args...)
	}
}

func Infof(format string, args ...interface{}) {
	if instance != nil {
		instance.Infof(format, args...)
	}
}

func Warn(args ...interface{}) {
	if instance != nil {
		instance.Warn(args...)
	}
}

func Error(args ...interface{}) {
	if instance != nil {
		instance.Error(args...)
	}
}

func Fatal(args ...interface{}) {
	if instance != nil {
		instance.Fatal(args...)
	}
}

// WithField creates a logger with a field
func WithField(key string, value interface{}) *logrus.Entry {
	if instance != nil {
		return instance.WithField(key, value)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// WithFields creates a logger with multiple fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	if instance != nil {
		return instance.WithFields(fields)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// WithError creates a logger with an error field
func WithError(err error) *logrus.Entry {
	if instance != nil {
		return instance.WithError(err)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Context-aware logging functions

// LogCallEvent logs call signaling events
func LogCallEvent(event, callID, userID string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":   event,
		"call_id": callID,
		"user_id": userID,
		"type":    "call_event",
	}

	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Info("Call Event")
}

// LogChatEvent logs chat-related events
func LogChatEvent(event, chatKey, userID string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":    event,
		"chat_key": chatKey,
		"user_id":  userID,
		"type":     "chat_event",
	}

	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Info("Chat Event")
}

// LogUserAction logs user actions
func LogUserAction(userID, action string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"user_id": userID,
		"action":  action,
		"type":    "user_action",
	}

	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Info("User Action")
}

// LogError logs detailed error information
func LogError(err error, context string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"error":   err.Error(),
		"context": context,
		"type":    "error_detail",
	}

	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Error("Application Error")
}

// SetLevel changes the logger level at runtime
func SetLevel(level LogLevel) {
	if instance != nil {
		instance.mu.Lock()
		defer instance.mu.Unlock()
		instance.Logger.SetLevel(logrusLevel(level))
	}
}
