package classifier

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
	promptx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/prompt"
)

// Router classifies a safe query into the closed intent vocabulary.
type Router struct {
	runner labelRunner
	modes  string
}

var _ contractx.IntentRouter = (*Router)(nil)

func NewRouter(ctx context.Context, chatModel einomodel.BaseChatModel, instruction string) (*Router, error) {
	runner, err := compileLabelGraph(ctx, chatModel, promptx.RouterSystem, instruction, "classifier.router")
	if err != nil {
		return nil, err
	}

	modes := make([]string, 0, len(contractx.Intents))
	for _, in := range contractx.Intents {
		modes = append(modes, string(in))
	}
	return &Router{runner: runner, modes: strings.Join(modes, ", ")}, nil
}

func (r *Router) Route(ctx context.Context, query string) (contractx.Intent, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: router query is empty", contractx.ErrValidation)
	}

	raw, err := invokeLabel(ctx, r.runner, map[string]any{
		"query": query,
		"modes": r.modes,
	}, "router")
	if err != nil {
		return "", err
	}

	intent := contractx.ParseIntent(raw)
	if intent == contractx.IntentUnknown && !strings.EqualFold(raw, string(contractx.IntentUnknown)) {
		log.Warn().Str("raw", raw).Msg("router output outside vocabulary")
	}
	return intent, nil
}
