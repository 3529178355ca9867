package events

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// LogPublisher writes every event to the global logger
type LogPublisher struct{}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish logs the event. Goal events are logged at info, the rest at debug.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	logEvent := log.Debug()
	if event.Type == EventGoalReached || event.Type == EventPhaseChanged {
		logEvent = log.Info()
	}
	logEvent.
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("timer_id", event.TimerID).
		RawJSON("data", nonEmpty(event.Data)).
		Msg("timer event")
	return nil
}

func nonEmpty(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}

// FanoutPublisher delivers each event to every wrapped publisher
type FanoutPublisher struct {
	publishers []Publisher
}

// NewFanoutPublisher creates a publisher that forwards to all of publishers.
// Nil entries are skipped.
func NewFanoutPublisher(publishers ...Publisher) *FanoutPublisher {
	f := &FanoutPublisher{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish forwards event to every publisher, even after a failure, and
// returns the joined errors.
func (f *FanoutPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
