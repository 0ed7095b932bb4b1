package booking

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

// DefaultHistoryWindow is how many prior messages accompany an extraction.
const DefaultHistoryWindow = 6

// Step names what the engine did with a turn.
type Step string

const (
	StepStarted    Step = "started"
	StepCollecting Step = "collecting"
	StepSummarized Step = "summarized"
	StepRedirected Step = "redirected"
	StepCanceled   Step = "canceled"
	StepChange     Step = "change"
	StepCompleted  Step = "completed"
)

// Outcome is the sub-flow state after one turn plus the reply to stream.
// Data is always a fresh map; callers may store it directly.
type Outcome struct {
	Step      Step
	Phase     contractx.Phase
	Data      contractx.SlotData
	Reply     string
	Completed bool
	Canceled  bool

	// Booked holds the confirmed slots when Completed is set.
	Booked contractx.SlotData
}

// Input is the sub-flow position the turn starts from.
type Input struct {
	Phase   contractx.Phase
	Data    contractx.SlotData
	Query   string
	History []contractx.ChatTurn // prior messages, excluding Query
}

type Engine struct {
	extractor    contractx.SlotExtractor
	confirmation contractx.ConfirmationClassifier
	offTopic     contractx.OffTopicDetector

	historyWindow int
}

type EngineOption func(*Engine)

func WithHistoryWindow(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.historyWindow = n
		}
	}
}

func NewEngine(extractor contractx.SlotExtractor, confirmation contractx.ConfirmationClassifier, offTopic contractx.OffTopicDetector, opts ...EngineOption) (*Engine, error) {
	if extractor == nil || confirmation == nil || offTopic == nil {
		return nil, fmt.Errorf("%w: booking engine requires extractor, confirmation and off-topic capabilities", contractx.ErrValidation)
	}
	e := &Engine{
		extractor:     extractor,
		confirmation:  confirmation,
		offTopic:      offTopic,
		historyWindow: DefaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start enters the flow from Idle. Any fields already present in the opening
// request are kept, so a complete request goes straight to confirmation.
func (e *Engine) Start(ctx context.Context, query string, history []contractx.ChatTurn) (Outcome, error) {
	extracted, err := e.extract(ctx, query, history)
	if err != nil {
		return Outcome{}, err
	}
	out := e.afterMerge(Merge(nil, extracted))
	if out.Step == StepCollecting {
		out.Step = StepStarted
	}
	return out, nil
}

// Continue handles a turn while the flow is active.
func (e *Engine) Continue(ctx context.Context, in Input) (Outcome, error) {
	if IsCancellation(in.Query) {
		log.Debug().Str("phase", string(in.Phase)).Msg("booking canceled by keyword")
		return canceled(), nil
	}

	switch in.Phase {
	case contractx.PhaseAwaitingConfirmation:
		return e.confirm(ctx, in)
	case contractx.PhaseCollecting:
		return e.collect(ctx, in)
	default:
		return Outcome{}, fmt.Errorf("%w: continue called in phase %q", contractx.ErrValidation, in.Phase)
	}
}

func (e *Engine) collect(ctx context.Context, in Input) (Outcome, error) {
	missing := Missing(in.Data)
	off, err := e.offTopic.IsOffTopic(ctx, contractx.OffTopicRequest{
		Query:   in.Query,
		Missing: slotNames(missing),
	})
	if err != nil {
		return Outcome{}, err
	}
	if off {
		// With nothing missing the redirect asks yes/no, so the next
		// reply goes to the confirmation gate.
		phase := contractx.PhaseCollecting
		if len(missing) == 0 {
			phase = contractx.PhaseAwaitingConfirmation
		}
		return Outcome{
			Step:  StepRedirected,
			Phase: phase,
			Data:  Merge(in.Data, nil),
			Reply: Redirect(in.Data),
		}, nil
	}

	extracted, err := e.extract(ctx, in.Query, in.History)
	if err != nil {
		return Outcome{}, err
	}
	return e.afterMerge(Merge(in.Data, extracted)), nil
}

func (e *Engine) confirm(ctx context.Context, in Input) (Outcome, error) {
	label, err := e.confirmation.Classify(ctx, in.Query)
	if err != nil {
		return Outcome{}, err
	}
	log.Debug().Str("label", string(label)).Msg("booking confirmation classified")

	switch label {
	case contractx.ConfirmAffirmative:
		return Outcome{
			Step:      StepCompleted,
			Phase:     contractx.PhaseIdle,
			Data:      contractx.SlotData{},
			Reply:     Confirmed(in.Data),
			Completed: true,
			Booked:    Merge(in.Data, nil),
		}, nil
	case contractx.ConfirmNegative:
		return canceled(), nil
	default:
		return Outcome{
			Step:  StepChange,
			Phase: contractx.PhaseCollecting,
			Data:  Merge(in.Data, nil),
			Reply: ChangePrompt,
		}, nil
	}
}

func (e *Engine) afterMerge(data contractx.SlotData) Outcome {
	if len(Missing(data)) == 0 {
		return Outcome{
			Step:  StepSummarized,
			Phase: contractx.PhaseAwaitingConfirmation,
			Data:  data,
			Reply: Summary(data),
		}
	}
	return Outcome{
		Step:  StepCollecting,
		Phase: contractx.PhaseCollecting,
		Data:  data,
		Reply: NextQuestion(data),
	}
}

func (e *Engine) extract(ctx context.Context, query string, history []contractx.ChatTurn) (contractx.SlotData, error) {
	if e.historyWindow == 0 {
		history = nil
	} else if len(history) > e.historyWindow {
		history = history[len(history)-e.historyWindow:]
	}
	raw, err := e.extractor.Extract(ctx, contractx.ExtractionRequest{Query: query, History: history})
	if err != nil {
		return nil, err
	}
	data := Sanitize(raw)
	if dropped := len(raw) - len(data); dropped > 0 {
		log.Debug().Int("dropped", dropped).Msg("extraction fields discarded")
	}
	return data, nil
}

func canceled() Outcome {
	return Outcome{
		Step:     StepCanceled,
		Phase:    contractx.PhaseIdle,
		Data:     contractx.SlotData{},
		Reply:    CanceledReply,
		Canceled: true,
	}
}
