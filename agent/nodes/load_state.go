package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/state"
)

// LoadState puts a draft copy of the session state on the graph.
func LoadState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st := in.stored
	if st == nil {
		loaded, err := store.Load(ctx, in.SessionID)
		if errors.Is(err, statex.ErrStateNotFound) {
			return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownSession, in.SessionID)
		}
		if err != nil {
			return nil, err
		}
		st = loaded
	}
	st.EnsureMaps()

	in.Session = st.Clone()
	in.stored = nil
	return in, nil
}

// ProcessQuery starts the turn on the draft: turn-scoped fields are reset and
// the user message is appended.
func ProcessQuery(in *GraphState) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}
	in.Session.BeginTurn(in.Text)
	in.Result = map[string]any{"query": in.Text}
	return in, nil
}
