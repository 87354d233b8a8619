package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogEventAdapter adapts zerolog events to the LogEvent interface.
type LogEventAdapter struct {
	event *zerolog.Event
}

// Msg logs the message
func (lea *LogEventAdapter) Msg(msg string) {
	lea.event.Msg(msg)
}

// Msgf logs a formatted message
func (lea *LogEventAdapter) Msgf(format string, args ...any) {
	lea.event.Msgf(format, args...)
}

// Err adds an error to the log event
func (lea *LogEventAdapter) Err(err error) LogEvent {
	lea.event = lea.event.Err(err)
	return lea
}

// Str adds a string field to the log event
func (lea *LogEventAdapter) Str(key, value string) LogEvent {
	lea.event = lea.event.Str(key, value)
	return lea
}

// Int adds an integer field to the log event
func (lea *LogEventAdapter) Int(key string, value int) LogEvent {
	lea.event = lea.event.Int(key, value)
	return lea
}

// Float64 adds a float field to the log event
func (lea *LogEventAdapter) Float64(key string, value float64) LogEvent {
	lea.event = lea.event.Float64(key, value)
	return lea
}

// Dur adds a duration field to the log event
func (lea *LogEventAdapter) Dur(key string, d time.Duration) LogEvent {
	lea.event = lea.event.Dur(key, d)
	return lea
}

// Interface adds an arbitrary field to the log event
func (lea *LogEventAdapter) Interface(key string, i any) LogEvent {
	lea.event = lea.event.Interface(key, i)
	return lea
}
