// Package booking implements the appointment slot-filling sub-flow: pure
// helpers over slot data plus an Engine that sequences the external
// classifiers for one turn of the flow.
package booking

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

// Merge returns old overlaid with update. Neither input is modified; empty
// values and unknown slot names are dropped.
func Merge(old, update contractx.SlotData) contractx.SlotData {
	out := make(contractx.SlotData, len(old)+len(update))
	for k, v := range old {
		if v = strings.TrimSpace(v); v != "" && contractx.IsKnownSlot(k) {
			out[k] = v
		}
	}
	for k, v := range update {
		if v = strings.TrimSpace(v); v != "" && contractx.IsKnownSlot(k) {
			out[k] = v
		}
	}
	return out
}

// absentMarkers are values extraction models use to say "not mentioned".
var absentMarkers = map[string]struct{}{
	"null":          {},
	"none":          {},
	"n/a":           {},
	"unknown":       {},
	"not specified": {},
	"not provided":  {},
}

// Sanitize restricts a raw extraction result to slot names with usable scalar
// values. Explicit absence (null, "none", ...) is filtered out.
func Sanitize(raw map[string]any) contractx.SlotData {
	out := make(contractx.SlotData, len(raw))
	for k, v := range raw {
		slot := contractx.Slot(strings.ToLower(strings.TrimSpace(k)))
		if !contractx.IsKnownSlot(slot) {
			continue
		}
		var text string
		switch val := v.(type) {
		case nil:
			continue
		case string:
			text = val
		case float64, bool, int, int64:
			text = fmt.Sprint(val)
		default:
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if _, absent := absentMarkers[strings.ToLower(text)]; absent {
			continue
		}
		out[slot] = text
	}
	return out
}

// Missing lists required slots absent from data, in priority order.
func Missing(data contractx.SlotData) []contractx.Slot {
	var missing []contractx.Slot
	for _, s := range contractx.RequiredSlots {
		if strings.TrimSpace(data[s]) == "" {
			missing = append(missing, s)
		}
	}
	return missing
}

func slotNames(slots []contractx.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, string(s))
	}
	return out
}
