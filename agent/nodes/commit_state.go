package orchestratornode

import (
	"context"
	"fmt"

	statex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/state"
)

// CommitState validates the draft and makes it the stored state.
func CommitState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}

	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, err
	}
	in.Result = map[string]any{"committed": true}
	return in, nil
}

func FinalizeTurn(in *GraphState) (GraphOutput, error) {
	if err := requireSession(in); err != nil {
		return GraphOutput{}, err
	}
	action := ""
	if in.Plan != nil {
		action = in.Plan.Action
	}
	return GraphOutput{
		Session: in.Session.Clone(),
		Reply:   in.Reply,
		Action:  action,
		Tokens:  in.Tokens,
		Booked:  in.Booked,
	}, nil
}
