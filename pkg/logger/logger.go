// Package logger provides component-scoped structured logging.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	mu  sync.RWMutex
	log = newLogger(os.Stderr)
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetLevel changes the minimum level that is emitted.
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	log.SetLevel(toLogrus(level))
}

// GetLevel reports the current minimum level.
func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	switch log.GetLevel() {
	case logrus.DebugLevel, logrus.TraceLevel:
		return DEBUG
	case logrus.WarnLevel:
		return WARN
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return ERROR
	default:
		return INFO
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a LogLevel.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// SetOutput redirects log output. Tests use it to capture records.
func SetOutput(out io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log.SetOutput(out)
}

// SetJSON switches between the JSON and the human readable formatter.
func SetJSON(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	if enabled {
		log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func toLogrus(level LogLevel) logrus.Level {
	switch level {
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func entry(component string, fields map[string]interface{}) *logrus.Entry {
	mu.RLock()
	l := log
	mu.RUnlock()
	e := logrus.NewEntry(l)
	if component != "" {
		e = e.WithField("component", component)
	}
	if len(fields) > 0 {
		e = e.WithFields(logrus.Fields(fields))
	}
	return e
}

func DebugC(component, message string) { entry(component, nil).Debug(message) }
func InfoC(component, message string)  { entry(component, nil).Info(message) }
func WarnC(component, message string)  { entry(component, nil).Warn(message) }
func ErrorC(component, message string) { entry(component, nil).Error(message) }

func DebugCF(component, message string, fields map[string]interface{}) {
	entry(component, fields).Debug(message)
}

func InfoCF(component, message string, fields map[string]interface{}) {
	entry(component, fields).Info(message)
}

func WarnCF(component, message string, fields map[string]interface{}) {
	entry(component, fields).Warn(message)
}

func ErrorCF(component, message string, fields map[string]interface{}) {
	entry(component, fields).Error(message)
}
