package booking

import (
	"strings"
	"unicode"
)

var cancelKeywords = []string{"cancel", "nevermind", "never mind", "forget it", "stop", "exit"}

// IsCancellation reports whether the query contains a cancellation keyword
// as a whole word or phrase ("stop" matches "please stop", not "stopover").
func IsCancellation(query string) bool {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	if len(words) == 0 {
		return false
	}
	normalized := " " + strings.Join(words, " ") + " "
	for _, kw := range cancelKeywords {
		if strings.Contains(normalized, " "+kw+" ") {
			return true
		}
	}
	return false
}
