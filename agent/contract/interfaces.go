package contract

import (
	"context"
	"time"
)

type IntentRouter interface {
	Route(ctx context.Context, query string) (Intent, error)
}

// SlotExtractor returns raw slot candidates; callers sanitise them.
type SlotExtractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (map[string]any, error)
}

type ConfirmationClassifier interface {
	Classify(ctx context.Context, reply string) (ConfirmationLabel, error)
}

type OffTopicDetector interface {
	IsOffTopic(ctx context.Context, req OffTopicRequest) (bool, error)
}

// Emit receives one transient fragment of a streamed reply.
type Emit func(text string) error

type Responder interface {
	StreamTemplate(ctx context.Context, content string, delay time.Duration, emit Emit) (Streamed, error)
	StreamGenerated(ctx context.Context, intent Intent, history []ChatTurn, emit Emit) (Streamed, error)
}

// Streamed is the assembled result of one streamed reply.
type Streamed struct {
	Content string `json:"content"`
	Tokens  int    `json:"tokens"`
}

type Registry interface {
	Router() IntentRouter
	Extractor() SlotExtractor
	Confirmation() ConfirmationClassifier
	OffTopic() OffTopicDetector
	Responder() Responder
}
