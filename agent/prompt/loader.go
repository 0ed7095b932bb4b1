package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/confirmation.txt
	confirmationRaw string

	//go:embed template/offtopic.txt
	offTopicRaw string

	//go:embed template/extraction.txt
	extractionRaw string
)

// RouterSystem is the system message sent alongside the router instruction.
const RouterSystem = "You are a helpful assistant"

// PromptSet holds loaded prompt content.
// Router, Confirmation and OffTopic are FString templates; Extraction is a
// plain system instruction.
type PromptSet struct {
	Router       string
	Confirmation string
	OffTopic     string
	Extraction   string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:       strings.TrimSpace(routerRaw),
		Confirmation: strings.TrimSpace(confirmationRaw),
		OffTopic:     strings.TrimSpace(offTopicRaw),
		Extraction:   strings.TrimSpace(extractionRaw),
	}
}

func (p PromptSet) Validate() error {
	for name, v := range map[string]string{
		"router":       p.Router,
		"confirmation": p.Confirmation,
		"offtopic":     p.OffTopic,
		"extraction":   p.Extraction,
	} {
		if v == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
	}
	return nil
}

var prepend = map[contractx.Intent]string{
	contractx.IntentShopInfo:        "Please provide information about JO's Bike Shop (hours, location, contact) based on the following query",
	contractx.IntentProductInquiry:  "Please help the customer with their product inquiry about bikes or accessories",
	contractx.IntentMaintenanceTips: "Please provide helpful bike maintenance tips for the following",
	contractx.IntentPolicyQuestion:  "Please answer the customer's question about shop policies (returns, warranties, delivery)",
}

// Prepend returns the instruction placed before the latest user message for
// generated replies of the given intent.
func Prepend(intent contractx.Intent) (string, bool) {
	p, ok := prepend[intent]
	return p, ok
}
