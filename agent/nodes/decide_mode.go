package orchestratornode

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

func DecideMode(ctx context.Context, in *GraphState, router contractx.IntentRouter) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}

	intent, err := router.Route(ctx, in.Session.Query)
	if err != nil {
		return nil, err
	}
	in.Session.Mode = intent
	in.Result = map[string]any{"mode": string(intent)}

	log.Debug().Str("session_id", in.SessionID).Str("mode", string(intent)).Msg("mode decided")
	return in, nil
}

func AfterDecideMode(in *GraphState) (string, error) {
	if err := requireSession(in); err != nil {
		return "", err
	}
	if in.Session.Mode == contractx.IntentBookAppointment {
		return StepStartBooking, nil
	}
	return StepPlanReply, nil
}
