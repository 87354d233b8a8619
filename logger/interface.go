// Package logger defines the structured logging contract used throughout
// the library and provides a zerolog-backed implementation.
package logger

import "time"

// Logger is the contract for structured logging. Implementations return
// LogEvent builders for each severity level.
type Logger interface {
	Debug() LogEvent
	Info() LogEvent
	Warn() LogEvent
	Error() LogEvent
	WithFields(fields map[string]any) Logger
}

// LogEvent is a structured log event under construction. Field methods
// return the event to allow chaining; Msg or Msgf sends the event.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Float64(key string, value float64) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Interface(key string, i any) LogEvent
}
