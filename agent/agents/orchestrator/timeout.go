package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

// withCallTimeout bounds every capability call of the registry by d.
func withCallTimeout(models contractx.Registry, d time.Duration) contractx.Registry {
	if d <= 0 {
		return models
	}
	return &timedRegistry{
		router:       timedRouter{models.Router(), d},
		extractor:    timedExtractor{models.Extractor(), d},
		confirmation: timedConfirmation{models.Confirmation(), d},
		offTopic:     timedOffTopic{models.OffTopic(), d},
		responder:    timedResponder{models.Responder(), d},
	}
}

type timedRegistry struct {
	router       contractx.IntentRouter
	extractor    contractx.SlotExtractor
	confirmation contractx.ConfirmationClassifier
	offTopic     contractx.OffTopicDetector
	responder    contractx.Responder
}

func (r *timedRegistry) Router() contractx.IntentRouter {
	return r.router
}

func (r *timedRegistry) Extractor() contractx.SlotExtractor {
	return r.extractor
}

func (r *timedRegistry) Confirmation() contractx.ConfirmationClassifier {
	return r.confirmation
}

func (r *timedRegistry) OffTopic() contractx.OffTopicDetector {
	return r.offTopic
}

func (r *timedRegistry) Responder() contractx.Responder {
	return r.responder
}

// timeoutErr marks deadline expiry of a single call as a model failure.
func timeoutErr(ctx context.Context, err error, what string) error {
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, contractx.ErrModelInvoke) {
		return fmt.Errorf("%w: %s timed out: %v", contractx.ErrModelInvoke, what, err)
	}
	return err
}

type timedRouter struct {
	next contractx.IntentRouter
	d    time.Duration
}

func (t timedRouter) Route(ctx context.Context, query string) (contractx.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	in, err := t.next.Route(ctx, query)
	return in, timeoutErr(ctx, err, "router")
}

type timedExtractor struct {
	next contractx.SlotExtractor
	d    time.Duration
}

func (t timedExtractor) Extract(ctx context.Context, req contractx.ExtractionRequest) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	out, err := t.next.Extract(ctx, req)
	return out, timeoutErr(ctx, err, "extractor")
}

type timedConfirmation struct {
	next contractx.ConfirmationClassifier
	d    time.Duration
}

func (t timedConfirmation) Classify(ctx context.Context, reply string) (contractx.ConfirmationLabel, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	out, err := t.next.Classify(ctx, reply)
	return out, timeoutErr(ctx, err, "confirmation")
}

type timedOffTopic struct {
	next contractx.OffTopicDetector
	d    time.Duration
}

func (t timedOffTopic) IsOffTopic(ctx context.Context, req contractx.OffTopicRequest) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	out, err := t.next.IsOffTopic(ctx, req)
	return out, timeoutErr(ctx, err, "offtopic")
}

// timedResponder only bounds generation; template replies are local.
type timedResponder struct {
	next contractx.Responder
	d    time.Duration
}

func (t timedResponder) StreamTemplate(ctx context.Context, content string, delay time.Duration, emit contractx.Emit) (contractx.Streamed, error) {
	return t.next.StreamTemplate(ctx, content, delay, emit)
}

func (t timedResponder) StreamGenerated(ctx context.Context, intent contractx.Intent, history []contractx.ChatTurn, emit contractx.Emit) (contractx.Streamed, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	out, err := t.next.StreamGenerated(ctx, intent, history, emit)
	return out, timeoutErr(ctx, err, "responder")
}
