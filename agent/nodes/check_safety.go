package orchestratornode

import (
	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/safety"
)

func CheckSafety(in *GraphState, gate *safety.Gate) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}
	in.Session.Safe = gate.Check(in.Session.Query)
	in.Result = map[string]any{"safe": in.Session.Safe}
	return in, nil
}

// AfterSafety picks the next step: refusal, the open booking flow, or
// intent routing.
func AfterSafety(in *GraphState) (string, error) {
	if err := requireSession(in); err != nil {
		return "", err
	}
	switch {
	case !in.Session.Safe:
		return StepUnsafeResponse, nil
	case in.Session.InAppointmentFlow:
		return StepBookingFlow, nil
	default:
		return StepDecideMode, nil
	}
}
