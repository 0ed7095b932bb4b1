package contract

import "strings"

// Intent is the closed vocabulary the router classifies a safe query into.
type Intent string

const (
	IntentShopInfo        Intent = "shop_info"
	IntentProductInquiry  Intent = "product_inquiry"
	IntentBookAppointment Intent = "book_appointment"
	IntentMaintenanceTips Intent = "maintenance_tips"
	IntentPolicyQuestion  Intent = "policy_question"
	IntentWhatCanYouDo    Intent = "what_can_you_do"
	IntentUnknown         Intent = "unknown"
)

// Intents lists the vocabulary in the order it is presented to the router.
var Intents = []Intent{
	IntentShopInfo,
	IntentProductInquiry,
	IntentBookAppointment,
	IntentMaintenanceTips,
	IntentPolicyQuestion,
	IntentWhatCanYouDo,
	IntentUnknown,
}

// ParseIntent accepts only an exact (case-folded) vocabulary match.
// Anything else, including multi-word output, maps to IntentUnknown.
func ParseIntent(raw string) Intent {
	candidate := Intent(strings.ToLower(strings.TrimSpace(raw)))
	for _, in := range Intents {
		if in == candidate {
			return in
		}
	}
	return IntentUnknown
}

// Generated reports whether replies for the intent come from the generation model.
func (i Intent) Generated() bool {
	switch i {
	case IntentShopInfo, IntentProductInquiry, IntentMaintenanceTips, IntentPolicyQuestion:
		return true
	default:
		return false
	}
}

// ConfirmationLabel is the closed label set of the confirmation gate.
type ConfirmationLabel string

const (
	ConfirmAffirmative ConfirmationLabel = "affirmative"
	ConfirmNegative    ConfirmationLabel = "negative"
	ConfirmChange      ConfirmationLabel = "change"
)

// ParseConfirmation maps anything outside the label set to ConfirmChange so an
// unexpected classifier answer never books or cancels silently.
func ParseConfirmation(raw string) ConfirmationLabel {
	switch label := ConfirmationLabel(strings.ToLower(strings.TrimSpace(raw))); label {
	case ConfirmAffirmative, ConfirmNegative, ConfirmChange:
		return label
	default:
		return ConfirmChange
	}
}

// OffTopicLabel is the only classifier answer treated as off topic.
const OffTopicLabel = "off_topic"

// Phase is the booking sub-flow position derived from the session flags.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseCollecting           Phase = "collecting"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is the role+content projection of a history message sent to models.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ExtractionRequest struct {
	Query   string     `json:"query"`
	History []ChatTurn `json:"history,omitempty"`
}

type OffTopicRequest struct {
	Query   string   `json:"query"`
	Missing []string `json:"missing,omitempty"`
}
