package orchestratornode

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/booking"
	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

// BookingFlow continues an open appointment sub-flow.
func BookingFlow(ctx context.Context, in *GraphState, engine *booking.Engine, delays Delays) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}

	out, err := engine.Continue(ctx, booking.Input{
		Phase:   in.Session.Phase(),
		Data:    in.Session.AppointmentData,
		Query:   in.Session.Query,
		History: priorHistory(in),
	})
	if err != nil {
		return nil, err
	}
	applyOutcome(in, out, StepBookingFlow, delays)
	return in, nil
}

// StartBooking opens the sub-flow after the router chose book_appointment.
func StartBooking(ctx context.Context, in *GraphState, engine *booking.Engine, delays Delays) (*GraphState, error) {
	if err := requireSession(in); err != nil {
		return nil, err
	}

	in.Session.AppointmentComplete = false
	out, err := engine.Start(ctx, in.Session.Query, priorHistory(in))
	if err != nil {
		return nil, err
	}
	applyOutcome(in, out, StepStartBooking, delays)
	return in, nil
}

func applyOutcome(in *GraphState, out booking.Outcome, action string, delays Delays) {
	st := in.Session
	st.InAppointmentFlow = out.Phase != contractx.PhaseIdle
	st.AwaitingConfirmation = out.Phase == contractx.PhaseAwaitingConfirmation
	st.AppointmentData = out.Data
	if st.AppointmentData == nil {
		st.AppointmentData = contractx.SlotData{}
	}
	st.AppointmentComplete = out.Completed
	in.Booked = out.Booked

	in.Plan = &ReplyPlan{
		Kind:    ReplyTemplate,
		Action:  action,
		Content: out.Reply,
		Delay:   delays.Default,
	}
	in.Result = map[string]any{
		"step":      string(out.Step),
		"phase":     string(out.Phase),
		"completed": out.Completed,
		"canceled":  out.Canceled,
	}

	log.Debug().
		Str("session_id", in.SessionID).
		Str("step", string(out.Step)).
		Str("phase", string(out.Phase)).
		Msg("booking outcome applied")
}

// priorHistory is the conversation before the current user message.
func priorHistory(in *GraphState) []contractx.ChatTurn {
	h := in.Session.History()
	if n := len(h); n > 0 && h[n-1].Role == contractx.RoleUser {
		return h[:n-1]
	}
	return h
}
