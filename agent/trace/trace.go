// Package trace records per-step execution entries of a session so that
// conversations can be inspected or extracted offline.
package trace

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Kind string

const (
	KindBeginEntry  Kind = "begin_entry"
	KindEndEntry    Kind = "end_entry"
	KindBeginStream Kind = "begin_stream"
	KindEndStream   Kind = "end_stream"
)

// Entry is one trace record. Which fields are set depends on Kind:
// begin_entry carries StartTime and Inputs; end_entry carries EndTime,
// Result, State and Exception; begin_stream carries StreamInitTime;
// end_stream carries EndTime and ItemsStreamed.
type Entry struct {
	Kind       Kind   `json:"type"`
	AppID      string `json:"app_id"`
	SequenceID int64  `json:"sequence_id"`
	Action     string `json:"action"`

	StartTime      time.Time `json:"start_time,omitempty"`
	EndTime        time.Time `json:"end_time,omitempty"`
	StreamInitTime time.Time `json:"stream_init_time,omitempty"`

	Inputs        map[string]any `json:"inputs,omitempty"`
	Result        map[string]any `json:"result,omitempty"`
	State         any            `json:"state,omitempty"`
	Exception     string         `json:"exception,omitempty"`
	ItemsStreamed int            `json:"items_streamed,omitempty"`
}

type Tracker interface {
	Emit(ctx context.Context, e Entry) error
}

type noop struct{}

func (noop) Emit(context.Context, Entry) error { return nil }

// Noop discards every entry.
var Noop Tracker = noop{}

type multi []Tracker

func (m multi) Emit(ctx context.Context, e Entry) error {
	var errs []error
	for _, t := range m {
		if err := t.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Multi fans entries out to every non-nil tracker.
func Multi(trackers ...Tracker) Tracker {
	out := make(multi, 0, len(trackers))
	for _, t := range trackers {
		if t != nil {
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return Noop
	case 1:
		return out[0]
	}
	return out
}

// Recorder keeps entries in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// ForApp returns the recorded entries of one session.
func (r *Recorder) ForApp(appID string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.AppID == appID {
			out = append(out, e)
		}
	}
	return out
}
