package contract

// Slot names a field of structured appointment information.
type Slot string

const (
	SlotServiceType    Slot = "service_type"
	SlotPreferredDate  Slot = "preferred_date"
	SlotPreferredTime  Slot = "preferred_time"
	SlotBikeDetails    Slot = "bike_details"
	SlotSpecificIssues Slot = "specific_issues"
	SlotContactInfo    Slot = "contact_info"
)

// RequiredSlots is in question priority order.
var RequiredSlots = []Slot{SlotServiceType, SlotPreferredDate, SlotPreferredTime}

var OptionalSlots = []Slot{SlotBikeDetails, SlotSpecificIssues, SlotContactInfo}

func IsKnownSlot(name Slot) bool {
	for _, s := range RequiredSlots {
		if s == name {
			return true
		}
	}
	for _, s := range OptionalSlots {
		if s == name {
			return true
		}
	}
	return false
}

// SlotData is the accumulated appointment information; absent keys are missing.
type SlotData map[Slot]string
