package booking

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

var slotLabels = map[contractx.Slot]string{
	contractx.SlotServiceType:    "Service Type",
	contractx.SlotPreferredDate:  "Preferred Date",
	contractx.SlotPreferredTime:  "Preferred Time",
	contractx.SlotBikeDetails:    "Bike Details",
	contractx.SlotSpecificIssues: "Specific Issues",
	contractx.SlotContactInfo:    "Contact Info",
}

var slotQuestions = map[contractx.Slot]string{
	contractx.SlotServiceType:   "What type of service do you need? (e.g., repair, tune-up, maintenance, inspection)",
	contractx.SlotPreferredDate: "What date would you like to bring your bike in?",
	contractx.SlotPreferredTime: "What time of day works best for you?",
}

const (
	ConfirmPrompt = "Shall I go ahead and book this appointment? (yes/no)"

	ChangePrompt = "Sure, what would you like to change?"

	CanceledReply = "No problem, I've canceled the appointment booking. Is there anything else I can help you with?"

	redirectPrefix = "I can help with that once we've finished booking your appointment. "
)

// NextQuestion asks for the first missing required slot. It returns "" when
// nothing required is missing.
func NextQuestion(data contractx.SlotData) string {
	missing := Missing(data)
	if len(missing) == 0 {
		return ""
	}

	var b strings.Builder
	if service := data[contractx.SlotServiceType]; service != "" {
		fmt.Fprintf(&b, "Great, I can help you book a %s appointment. ", service)
	}
	next := missing[0]
	if q, ok := slotQuestions[next]; ok {
		b.WriteString(q)
	} else {
		fmt.Fprintf(&b, "Please provide your %s.", strings.ReplaceAll(string(next), "_", " "))
	}
	return b.String()
}

// Summary lists every present slot, required first then optional, and ends
// with an explicit yes/no prompt.
func Summary(data contractx.SlotData) string {
	var b strings.Builder
	b.WriteString("Here's a summary of your appointment request:\n\n")
	for _, group := range [][]contractx.Slot{contractx.RequiredSlots, contractx.OptionalSlots} {
		for _, s := range group {
			v := strings.TrimSpace(data[s])
			if v == "" {
				continue
			}
			fmt.Fprintf(&b, "• %s: %s\n", slotLabels[s], v)
		}
	}
	b.WriteString("\n")
	b.WriteString(ConfirmPrompt)
	return b.String()
}

// Redirect steers an off-topic message back to the open booking step.
func Redirect(data contractx.SlotData) string {
	if q := NextQuestion(data); q != "" {
		return redirectPrefix + q
	}
	return redirectPrefix + ConfirmPrompt
}

// Confirmed is the simulated booking confirmation.
func Confirmed(data contractx.SlotData) string {
	return fmt.Sprintf(
		"Your %s appointment is booked for %s (%s). We look forward to seeing you and your bike! Is there anything else I can help you with?",
		data[contractx.SlotServiceType],
		data[contractx.SlotPreferredDate],
		data[contractx.SlotPreferredTime],
	)
}
