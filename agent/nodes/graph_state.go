// Package orchestratornode holds the per-turn orchestration steps. Each step
// is a plain function over *GraphState so the orchestrator can wire it into
// its graph and tests can call it directly.
package orchestratornode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/state"
)

var (
	ErrInvalidMessage = fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	ErrInvalidSession = fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	ErrNoReplyPlan    = errors.New("no reply planned")
)

// Step names, also used as trace actions.
const (
	StepValidateRequest = "validate_request"
	StepLoadState       = "load_state"
	StepProcessQuery    = "process_query"
	StepCheckSafety     = "check_safety"
	StepUnsafeResponse  = "unsafe_response"
	StepBookingFlow     = "booking_flow"
	StepDecideMode      = "decide_mode"
	StepStartBooking    = "start_booking"
	StepPlanReply       = "plan_reply"
	StepRespond         = "respond"
	StepCommitState     = "commit_state"
)

type GraphInput struct {
	SessionID string
	Text      string

	// Stored is the already loaded state, if the caller has it.
	Stored *statex.SessionState
	Emit   contractx.Emit
}

type GraphOutput struct {
	Session *statex.SessionState
	Reply   statex.Message
	Action  string
	Tokens  int
	Booked  contractx.SlotData
}

type ReplyKind string

const (
	ReplyTemplate  ReplyKind = "template"
	ReplyGenerated ReplyKind = "generated"
)

// ReplyPlan describes how respond produces the assistant message.
type ReplyPlan struct {
	Kind    ReplyKind
	Action  string
	Content string
	Delay   time.Duration
	Intent  contractx.Intent
}

// Delays are the per-token pauses of template replies.
type Delays struct {
	Default    time.Duration
	Capability time.Duration
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time
	Emit      contractx.Emit

	stored *statex.SessionState
	// Session is the draft; it replaces the stored state only at commit.
	Session *statex.SessionState

	Plan   *ReplyPlan
	Reply  statex.Message
	Tokens int

	// Booked is set by the turn that confirms an appointment.
	Booked contractx.SlotData

	// Result is the step-level outcome recorded by the last step.
	Result map[string]any
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	emit := in.Emit
	if emit == nil {
		emit = func(string) error { return nil }
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
		Emit:      emit,
		stored:    in.Stored,
	}, nil
}

func requireSession(in *GraphState) error {
	if in == nil || in.Session == nil {
		return fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	return nil
}
