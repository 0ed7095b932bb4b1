package state

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

func TestBeginTurnResetsTurnScopedFields(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", time.Now())
	st.Mode = contractx.IntentShopInfo
	st.Safe = true
	st.InAppointmentFlow = true
	st.AppointmentData[contractx.SlotServiceType] = "repair"

	st.BeginTurn("next question")

	if st.Mode != "" || st.Safe {
		t.Fatalf("turn scoped fields not reset: mode=%q safe=%v", st.Mode, st.Safe)
	}
	if !st.InAppointmentFlow || st.AppointmentData[contractx.SlotServiceType] != "repair" {
		t.Fatal("booking fields must survive BeginTurn")
	}
	if st.Query != "next question" {
		t.Fatalf("unexpected query: %q", st.Query)
	}
	last := st.ChatHistory[len(st.ChatHistory)-1]
	if last.Role != contractx.RoleUser || last.Content != "next question" || last.Type != MessageTypeText {
		t.Fatalf("unexpected user message: %#v", last)
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", time.Now())
	st.BeginTurn("hello")
	st.AppointmentData[contractx.SlotPreferredDate] = "monday"

	cp := st.Clone()
	cp.AppendAssistant("hi")
	cp.AppointmentData[contractx.SlotPreferredDate] = "friday"

	if len(st.ChatHistory) != 1 {
		t.Fatalf("original history mutated: %d", len(st.ChatHistory))
	}
	if st.AppointmentData[contractx.SlotPreferredDate] != "monday" {
		t.Fatal("original appointment data mutated")
	}
}

func TestPhase(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", time.Now())
	if st.Phase() != contractx.PhaseIdle {
		t.Fatalf("want idle, got %s", st.Phase())
	}
	st.InAppointmentFlow = true
	if st.Phase() != contractx.PhaseCollecting {
		t.Fatalf("want collecting, got %s", st.Phase())
	}
	st.AwaitingConfirmation = true
	if st.Phase() != contractx.PhaseAwaitingConfirmation {
		t.Fatalf("want awaiting_confirmation, got %s", st.Phase())
	}
}

func TestValidateInvariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*SessionState)
	}{
		{"awaiting outside flow", func(s *SessionState) { s.AwaitingConfirmation = true }},
		{"empty slot value", func(s *SessionState) { s.AppointmentData[contractx.SlotPreferredTime] = " " }},
		{"unknown slot", func(s *SessionState) { s.AppointmentData["color"] = "red" }},
		{"complete while in flow", func(s *SessionState) {
			s.AppointmentComplete = true
			s.InAppointmentFlow = true
		}},
		{"complete with data", func(s *SessionState) {
			s.AppointmentComplete = true
			s.AppointmentData[contractx.SlotServiceType] = "repair"
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			st := NewSessionState("s1", time.Now())
			tc.mutate(st)
			if err := st.Validate(); !errors.Is(err, ErrInvariantBroken) {
				t.Fatalf("Validate() error = %v, want ErrInvariantBroken", err)
			}
		})
	}
}

func TestValidateRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", time.Now())
	st.ChatHistory = append(st.ChatHistory, Message{Role: "system", Content: "x", Type: MessageTypeText})
	if err := st.Validate(); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("Validate() error = %v, want ErrInvalidRole", err)
	}
}
