// Package responder produces the assistant's reply as a stream of text
// fragments, either from a fixed template or from the generation model.
package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
	promptx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/prompt"
)

const (
	UnsafeReply        = "I am afraid I can't respond to that..."
	ClarificationReply = "None of the response modes I support apply to your question. Please clarify?"
	CapabilityReply    = "I'm here to help you with JO's Bike Shop! I can assist you with:\n\n" +
		"• Shop Information - Opening hours, location, and contact details\n" +
		"• Product Inquiries - Available bikes, accessories, and product availability\n" +
		"• Service Appointments - Booking bike service and repairs\n" +
		"• Maintenance Tips - Advice on keeping your bike in top condition\n" +
		"• Shop Policies - Questions about returns, warranties, and delivery\n\n" +
		"How can I help you today?"
)

type Synthesizer struct {
	model einomodel.BaseChatModel
}

var _ contractx.Responder = (*Synthesizer)(nil)

func New(chatModel einomodel.BaseChatModel) (*Synthesizer, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: responder requires a chat model", contractx.ErrValidation)
	}
	return &Synthesizer{model: chatModel}, nil
}

// StreamTemplate emits content one whitespace-separated word at a time, each
// followed by a space, pausing delay between words. The returned content is
// the template itself.
func (s *Synthesizer) StreamTemplate(ctx context.Context, content string, delay time.Duration, emit contractx.Emit) (contractx.Streamed, error) {
	words := strings.Fields(content)
	tokens := 0
	for i, word := range words {
		if i > 0 && delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return contractx.Streamed{}, err
			}
		}
		if err := ctx.Err(); err != nil {
			return contractx.Streamed{}, err
		}
		if err := emit(word + " "); err != nil {
			return contractx.Streamed{}, err
		}
		tokens++
	}
	return contractx.Streamed{Content: content, Tokens: tokens}, nil
}

// StreamGenerated streams a model reply to history. The intent's instruction
// is prepended to the last user message of a copy; history itself is never
// modified.
func (s *Synthesizer) StreamGenerated(ctx context.Context, intent contractx.Intent, history []contractx.ChatTurn, emit contractx.Emit) (contractx.Streamed, error) {
	instruction, ok := promptx.Prepend(intent)
	if !ok {
		return contractx.Streamed{}, fmt.Errorf("%w: intent %q has no generated reply", contractx.ErrValidation, intent)
	}

	messages, err := buildMessages(instruction, history)
	if err != nil {
		return contractx.Streamed{}, err
	}

	stream, err := s.model.Stream(ctx, messages)
	if err != nil {
		return contractx.Streamed{}, fmt.Errorf("%w: responder stream: %v", contractx.ErrModelInvoke, err)
	}
	defer stream.Close()

	var (
		b      strings.Builder
		tokens int
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return contractx.Streamed{}, fmt.Errorf("%w: responder recv: %v", contractx.ErrModelInvoke, err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		if err := emit(chunk.Content); err != nil {
			return contractx.Streamed{}, err
		}
		b.WriteString(chunk.Content)
		tokens++
	}

	log.Debug().Str("intent", string(intent)).Int("tokens", tokens).Msg("generated reply streamed")
	return contractx.Streamed{Content: b.String(), Tokens: tokens}, nil
}

func buildMessages(instruction string, history []contractx.ChatTurn) ([]*schema.Message, error) {
	lastUser := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == contractx.RoleUser {
			lastUser = i
			break
		}
	}
	if lastUser < 0 {
		return nil, fmt.Errorf("%w: history has no user message", contractx.ErrValidation)
	}

	messages := make([]*schema.Message, 0, len(history))
	for i, turn := range history {
		switch {
		case i == lastUser:
			messages = append(messages, schema.UserMessage(instruction+": "+turn.Content))
		case turn.Role == contractx.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(turn.Content))
		}
	}
	return messages, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
