package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

// Respond streams the planned reply through in.Emit and appends the full
// assistant message to the draft history.
func Respond(ctx context.Context, in *GraphState, responder contractx.Responder) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}
	if in.Plan == nil {
		return nil, ErrNoReplyPlan
	}

	var (
		res contractx.Streamed
		err error
	)
	switch in.Plan.Kind {
	case ReplyTemplate:
		res, err = responder.StreamTemplate(ctx, in.Plan.Content, in.Plan.Delay, in.Emit)
	case ReplyGenerated:
		res, err = responder.StreamGenerated(ctx, in.Plan.Intent, in.Session.History(), in.Emit)
	default:
		err = fmt.Errorf("%w: reply kind %q", contractx.ErrValidation, in.Plan.Kind)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Content) == "" {
		return nil, fmt.Errorf("%w: empty reply", contractx.ErrSchemaViolation)
	}

	in.Reply = in.Session.AppendAssistant(res.Content)
	in.Tokens = res.Tokens
	in.Result = map[string]any{"tokens": res.Tokens, "action": in.Plan.Action}
	return in, nil
}
