package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

const MessageTypeText = "text"

// Message is one chat_history entry. It is never edited once appended.
type Message struct {
	Role    contractx.Role `json:"role"`
	Content string         `json:"content"`
	Type    string         `json:"type"`
}

// SessionState is the source-of-truth for one conversation.
// - Turn scoped: Query, Mode, Safe (reset by BeginTurn)
// - Booking sub-flow: InAppointmentFlow + AwaitingConfirmation + AppointmentData
type SessionState struct {
	SessionID string `json:"session_id"`

	Query       string           `json:"query"`
	ChatHistory []Message        `json:"chat_history"`
	Mode        contractx.Intent `json:"mode,omitempty"`
	Safe        bool             `json:"safe"`

	InAppointmentFlow    bool               `json:"in_appointment_flow"`
	AppointmentData      contractx.SlotData `json:"appointment_data"`
	AwaitingConfirmation bool               `json:"awaiting_confirmation"`
	AppointmentComplete  bool               `json:"appointment_complete"`

	// SequenceID is the last trace sequence id issued for this session.
	SequenceID int64 `json:"sequence_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNilState        = errors.New("nil session state")
	ErrInvalidRole     = errors.New("invalid message role")
	ErrInvariantBroken = errors.New("session invariant broken")
)

func NewSessionState(sessionID string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:       sessionID,
		ChatHistory:     make([]Message, 0, 8),
		AppointmentData: contractx.SlotData{},
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// EnsureMaps makes sure decoded states have non-nil collections.
func (s *SessionState) EnsureMaps() {
	if s.AppointmentData == nil {
		s.AppointmentData = contractx.SlotData{}
	}
	if s.ChatHistory == nil {
		s.ChatHistory = make([]Message, 0, 8)
	}
}

// Clone returns a deep copy; the orchestrator works on a clone and only
// replaces the stored state when a turn commits.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.ChatHistory = append(make([]Message, 0, len(s.ChatHistory)+2), s.ChatHistory...)
	out.AppointmentData = make(contractx.SlotData, len(s.AppointmentData))
	for k, v := range s.AppointmentData {
		out.AppointmentData[k] = v
	}
	return &out
}

// BeginTurn resets turn-scoped fields and records the user message.
func (s *SessionState) BeginTurn(query string) {
	s.Query = query
	s.Mode = ""
	s.Safe = false
	s.append(contractx.RoleUser, query)
}

func (s *SessionState) AppendAssistant(content string) Message {
	return s.append(contractx.RoleAssistant, content)
}

func (s *SessionState) append(role contractx.Role, content string) Message {
	msg := Message{Role: role, Content: content, Type: MessageTypeText}
	s.ChatHistory = append(s.ChatHistory, msg)
	return msg
}

func (s *SessionState) Phase() contractx.Phase {
	switch {
	case s == nil || !s.InAppointmentFlow:
		return contractx.PhaseIdle
	case s.AwaitingConfirmation:
		return contractx.PhaseAwaitingConfirmation
	default:
		return contractx.PhaseCollecting
	}
}

// History returns the role+content projection used for model requests.
func (s *SessionState) History() []contractx.ChatTurn {
	out := make([]contractx.ChatTurn, 0, len(s.ChatHistory))
	for _, m := range s.ChatHistory {
		out = append(out, contractx.ChatTurn{Role: m.Role, Content: m.Content})
	}
	return out
}

func (s *SessionState) Validate() error {
	if s == nil {
		return ErrNilState
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	for i, m := range s.ChatHistory {
		if m.Role != contractx.RoleUser && m.Role != contractx.RoleAssistant {
			return fmt.Errorf("%w: chat_history[%d] role=%q", ErrInvalidRole, i, m.Role)
		}
	}
	if s.AwaitingConfirmation && !s.InAppointmentFlow {
		return fmt.Errorf("%w: awaiting_confirmation outside appointment flow", ErrInvariantBroken)
	}
	for k, v := range s.AppointmentData {
		if !contractx.IsKnownSlot(k) {
			return fmt.Errorf("%w: unknown slot %q", ErrInvariantBroken, k)
		}
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: empty value for slot %q", ErrInvariantBroken, k)
		}
	}
	if s.AppointmentComplete && (s.InAppointmentFlow || len(s.AppointmentData) > 0) {
		return fmt.Errorf("%w: completed appointment must exit flow and clear data", ErrInvariantBroken)
	}
	return nil
}
