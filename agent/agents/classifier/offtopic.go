package classifier

import (
	"context"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

const nothingMissing = "nothing, all required details are collected"

// OffTopic decides whether a message during slot collection is unrelated to
// the booking. Only the exact label off_topic counts.
type OffTopic struct {
	runner labelRunner
}

var _ contractx.OffTopicDetector = (*OffTopic)(nil)

func NewOffTopic(ctx context.Context, chatModel einomodel.BaseChatModel, instruction string) (*OffTopic, error) {
	runner, err := compileLabelGraph(ctx, chatModel, "", instruction, "classifier.offtopic")
	if err != nil {
		return nil, err
	}
	return &OffTopic{runner: runner}, nil
}

func (o *OffTopic) IsOffTopic(ctx context.Context, req contractx.OffTopicRequest) (bool, error) {
	missing := strings.Join(req.Missing, ", ")
	if missing == "" {
		missing = nothingMissing
	}

	raw, err := invokeLabel(ctx, o.runner, map[string]any{
		"query":   req.Query,
		"missing": missing,
	}, "offtopic")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(raw, contractx.OffTopicLabel), nil
}
