package log

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Leveled adapts zerolog to the key/value logger interface used by
// go-retryablehttp.
type Leveled struct {
	logger zerolog.Logger
}

// NewLeveled wraps the given logger.
func NewLeveled(logger zerolog.Logger) *Leveled {
	return &Leveled{logger: logger}
}

func (l *Leveled) Error(msg string, keysAndValues ...interface{}) {
	withFields(l.logger.Error(), keysAndValues).Msg(msg)
}

func (l *Leveled) Info(msg string, keysAndValues ...interface{}) {
	withFields(l.logger.Info(), keysAndValues).Msg(msg)
}

// Debug is used by retryablehttp for every attempt, so it stays at debug.
func (l *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	withFields(l.logger.Debug(), keysAndValues).Msg(msg)
}

func (l *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	withFields(l.logger.Warn(), keysAndValues).Msg(msg)
}

func withFields(event *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			event = event.AnErr(key, err)
			continue
		}
		event = event.Interface(key, keysAndValues[i+1])
	}
	if len(keysAndValues)%2 == 1 {
		event = event.Interface("extra", keysAndValues[len(keysAndValues)-1])
	}
	return event
}
