// Package classifier implements the single-label model capabilities of the
// assistant (intent routing, confirmation and off-topic detection) and the
// structured slot extractor.
package classifier

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

type labelRunner = compose.Runnable[map[string]any, *schema.Message]

// compileLabelGraph chains an FString chat template into the model. The
// output message content is the raw label.
func compileLabelGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	userTemplate string,
	graphName string,
) (labelRunner, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: %s requires a chat model", contractx.ErrValidation, graphName)
	}

	messages := make([]schema.MessagesTemplate, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, schema.SystemMessage(systemPrompt))
	}
	messages = append(messages, schema.UserMessage(userTemplate))
	template := einoprompt.FromMessages(schema.FString, messages...)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add %s prompt node: %w", graphName, err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add %s model node: %w", graphName, err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add %s edge start->prompt: %w", graphName, err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add %s edge prompt->model: %w", graphName, err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add %s edge model->end: %w", graphName, err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", graphName, err)
	}
	return runner, nil
}

func invokeLabel(ctx context.Context, runner labelRunner, vars map[string]any, what string) (string, error) {
	out, err := runner.Invoke(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%w: %s invoke: %v", contractx.ErrModelInvoke, what, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: %s returned no message", contractx.ErrModelInvoke, what)
	}
	return strings.TrimSpace(out.Content), nil
}
