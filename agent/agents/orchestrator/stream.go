package orchestrator

import (
	"context"
	"io"
	"sync"

	statex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/state"
)

// Fragment is one transient piece of the reply. It never carries state.
type Fragment struct {
	Text string `json:"text"`
}

// TurnResult is the terminal value of a turn.
type TurnResult struct {
	State  *statex.SessionState `json:"state"`
	Reply  statex.Message       `json:"message"`
	Action string               `json:"action"`
	Tokens int                  `json:"tokens"`
}

// TurnStream delivers the fragments of one turn in generation order followed
// by exactly one terminal result or error.
type TurnStream struct {
	fragments chan Fragment
	done      chan struct{}

	result TurnResult
	err    error

	drainOnce sync.Once
}

func newTurnStream() *TurnStream {
	return &TurnStream{
		fragments: make(chan Fragment, 16),
		done:      make(chan struct{}),
	}
}

// emit blocks until the consumer has room or the turn context ends.
func (s *TurnStream) emit(ctx context.Context, text string) error {
	select {
	case s.fragments <- Fragment{Text: text}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *TurnStream) finish(res TurnResult, err error) {
	s.result, s.err = res, err
	close(s.fragments)
	close(s.done)
}

// Recv returns the next fragment, or io.EOF once the reply is complete.
// Call Result afterwards for the committed state or the turn error.
func (s *TurnStream) Recv() (Fragment, error) {
	f, ok := <-s.fragments
	if !ok {
		return Fragment{}, io.EOF
	}
	return f, nil
}

// Result blocks until the turn ends. Fragments not yet received are
// discarded.
func (s *TurnStream) Result() (TurnResult, error) {
	s.drainOnce.Do(func() {
		go func() {
			for range s.fragments {
			}
		}()
	})
	<-s.done
	return s.result, s.err
}

// Collect drains the stream and returns the fragments with the result.
func (s *TurnStream) Collect() ([]Fragment, TurnResult, error) {
	var out []Fragment
	for {
		f, err := s.Recv()
		if err == io.EOF {
			break
		}
		out = append(out, f)
	}
	res, err := s.Result()
	return out, res, err
}
