package logging

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

type Fields map[string]interface{}

type level int32

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

var levelNames = map[level]string{
	levelDebug: "debug",
	levelInfo:  "info",
	levelWarn:  "warn",
	levelError: "error",
	levelFatal: "fatal",
}

var minLevel atomic.Int32

func init() {
	SetLevel(os.Getenv("WARCYCLE_LOG_LEVEL"))
}

// SetLevel sets the minimum emitted level by name (debug, info, warn,
// error). Unknown or empty names select info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		minLevel.Store(int32(levelDebug))
	case "warn", "warning":
		minLevel.Store(int32(levelWarn))
	case "error":
		minLevel.Store(int32(levelError))
	default:
		minLevel.Store(int32(levelInfo))
	}
}

func output(lv level, msg string, fields Fields) {
	if int32(lv) < minLevel.Load() {
		return
	}
	if fields == nil {
		fields = Fields{}
	}
	fields["level"] = levelNames[lv]
	fields["ts"] = time.Now().UTC().Format(time.RFC3339)
	fields["msg"] = msg
	b, err := json.Marshal(fields)
	if err != nil {
		// fallback to plain logging
		log.Printf("%s: %s (%v)\n", levelNames[lv], msg, fields)
		return
	}
	log.Println(string(b))
}

// Debug logs a debug message with optional fields.
func Debug(msg string, fields Fields) {
	output(levelDebug, msg, fields)
}

// Info logs an informational message with optional fields.
func Info(msg string, fields Fields) {
	output(levelInfo, msg, fields)
}

// Warn logs a warning with optional fields.
func Warn(msg string, fields Fields) {
	output(levelWarn, msg, fields)
}

// Error logs an error message and includes the error text in the fields.
func Error(msg string, err error, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	output(levelError, msg, fields)
}

// Fatal logs a fatal error and exits the process.
func Fatal(msg string, err error, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	output(levelFatal, msg, fields)
	os.Exit(1)
}
