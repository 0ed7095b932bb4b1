package classifier

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

// Confirmation labels a reply to the booking summary.
type Confirmation struct {
	runner labelRunner
}

var _ contractx.ConfirmationClassifier = (*Confirmation)(nil)

func NewConfirmation(ctx context.Context, chatModel einomodel.BaseChatModel, instruction string) (*Confirmation, error) {
	runner, err := compileLabelGraph(ctx, chatModel, "", instruction, "classifier.confirmation")
	if err != nil {
		return nil, err
	}
	return &Confirmation{runner: runner}, nil
}

func (c *Confirmation) Classify(ctx context.Context, reply string) (contractx.ConfirmationLabel, error) {
	raw, err := invokeLabel(ctx, c.runner, map[string]any{"reply": reply}, "confirmation")
	if err != nil {
		return "", err
	}

	label := contractx.ParseConfirmation(raw)
	if string(label) != raw {
		log.Debug().Str("raw", raw).Str("label", string(label)).Msg("confirmation label normalised")
	}
	return label, nil
}
