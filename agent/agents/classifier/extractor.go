package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

// Extractor pulls appointment slot candidates out of the conversation using a
// JSON-object constrained chat completion.
type Extractor struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	instruction string
}

var _ contractx.SlotExtractor = (*Extractor)(nil)

func NewExtractor(client *openaisdk.Client, model string, temperature float32, instruction string) (*Extractor, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: extractor requires an openai client", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: extractor model is required", contractx.ErrValidation)
	}
	return &Extractor{
		client:      client,
		model:       strings.TrimSpace(model),
		temperature: float64(temperature),
		instruction: instruction,
	}, nil
}

func (e *Extractor) Extract(ctx context.Context, req contractx.ExtractionRequest) (map[string]any, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	messages = append(messages, openaisdk.SystemMessage(e.instruction))
	for _, turn := range req.History {
		switch turn.Role {
		case contractx.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openaisdk.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openaisdk.UserMessage(req.Query))

	resp, err := e.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       e.model,
		Messages:    messages,
		Temperature: openaisdk.Float(e.temperature),
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: extractor invoke: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: extractor returned no choices", contractx.ErrSchemaViolation)
	}

	return parseExtraction(resp.Choices[0].Message.Content)
}

func parseExtraction(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var out map[string]any
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("%w: extractor output is not a json object: %v", contractx.ErrSchemaViolation, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
