package orchestratornode

import (
	"fmt"

	responderx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/agents/responder"
	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

func UnsafeResponse(in *GraphState, delays Delays) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}
	in.Plan = &ReplyPlan{
		Kind:    ReplyTemplate,
		Action:  StepUnsafeResponse,
		Content: responderx.UnsafeReply,
		Delay:   delays.Default,
	}
	in.Result = map[string]any{"reply": string(ReplyTemplate)}
	return in, nil
}

// PlanReply maps a non-booking intent to its reply: fixed texts for
// what_can_you_do and unknown, generation for everything else.
func PlanReply(in *GraphState, delays Delays) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}

	mode := in.Session.Mode
	switch {
	case mode == contractx.IntentWhatCanYouDo:
		in.Plan = &ReplyPlan{Kind: ReplyTemplate, Action: string(mode), Content: responderx.CapabilityReply, Delay: delays.Capability}
	case mode == contractx.IntentUnknown:
		in.Plan = &ReplyPlan{Kind: ReplyTemplate, Action: string(mode), Content: responderx.ClarificationReply, Delay: delays.Default}
	case mode.Generated():
		in.Plan = &ReplyPlan{Kind: ReplyGenerated, Action: string(mode), Intent: mode}
	default:
		return nil, fmt.Errorf("%w: no reply for mode %q", contractx.ErrValidation, mode)
	}

	in.Result = map[string]any{"reply": string(in.Plan.Kind), "mode": string(mode)}
	return in, nil
}
