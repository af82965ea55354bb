// Package eventstest provides an in-memory events.Publisher for tests.
package eventstest

import (
	"context"

	"tourbook/models"
)

// Recorder keeps published events in a bounded buffer. Events beyond the
// capacity are dropped.
type Recorder struct {
	events chan models.Event
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{events: make(chan models.Event, capacity)}
}

func (r *Recorder) Publish(_ context.Context, event models.Event) error {
	select {
	case r.events <- event:
	default:
	}
	return nil
}

func (r *Recorder) Close() error { return nil }

// Drain returns the events recorded so far.
func (r *Recorder) Drain() []models.Event {
	var out []models.Event
	for {
		select {
		case e := <-r.events:
			out = append(out, e)
		default:
			return out
		}
	}
}
