// Package orchestrator runs conversation turns: it owns the session
// registry, sequences the per-turn steps and streams the reply.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/booking"
	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
	nodex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/nodes"
	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/safety"
	statex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/trace"
	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/turnlock"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	TypingDelay     time.Duration `split_words:"true" default:"100ms"`
	CapabilityDelay time.Duration `split_words:"true" default:"50ms"`
	CallTimeout     time.Duration `split_words:"true" default:"20s"`
	TurnTimeout     time.Duration `split_words:"true" default:"2m"`
	HistoryWindow   int           `split_words:"true" default:"6"`
	NotifyTimeout   time.Duration `split_words:"true" default:"10s"`
}

type Option func(*Orchestrator)

func WithSafetyGate(g *safety.Gate) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.gate = g
		}
	}
}

func WithLocker(l turnlock.Locker) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.locker = l
		}
	}
}

func WithTracker(t trace.Tracker) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracker = t
		}
	}
}

// BookingNotifier receives confirmed appointment requests after the turn that
// confirmed them has been committed.
type BookingNotifier interface {
	Notify(ctx context.Context, req booking.Request) (string, error)
}

func WithBookingNotifier(n BookingNotifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

type Orchestrator struct {
	store   statex.Store
	models  contractx.Registry
	gate    *safety.Gate
	engine  *booking.Engine
	locker  turnlock.Locker
	tracker trace.Tracker
	seq     *sequencer

	notifier      BookingNotifier
	notifyTimeout time.Duration

	delays      nodex.Delays
	turnTimeout time.Duration

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

func New(store statex.Store, models contractx.Registry, cfg Config, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if models == nil {
		return nil, errors.New("model registry is required")
	}
	if models.Router() == nil || models.Extractor() == nil || models.Confirmation() == nil ||
		models.OffTopic() == nil || models.Responder() == nil {
		return nil, fmt.Errorf("%w: model registry is incomplete", contractx.ErrValidation)
	}

	models = withCallTimeout(models, cfg.CallTimeout)

	var engineOpts []booking.EngineOption
	if cfg.HistoryWindow > 0 {
		engineOpts = append(engineOpts, booking.WithHistoryWindow(cfg.HistoryWindow))
	}
	engine, err := booking.NewEngine(models.Extractor(), models.Confirmation(), models.OffTopic(), engineOpts...)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		store:   store,
		models:  models,
		gate:    safety.Default(),
		engine:  engine,
		locker:  turnlock.NewLocal(),
		tracker: trace.Noop,
		seq:     newSequencer(),
		delays: nodex.Delays{
			Default:    cfg.TypingDelay,
			Capability: cfg.CapabilityDelay,
		},
		turnTimeout:   cfg.TurnTimeout,
		notifyTimeout: cfg.NotifyTimeout,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// CreateSession stores a fresh, empty session and returns it.
func (o *Orchestrator) CreateSession(ctx context.Context) (*statex.SessionState, error) {
	st := statex.NewSessionState(o.newID(), o.now())
	if err := o.store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Debug().Str("session_id", st.SessionID).Msg("session created")
	return st.Clone(), nil
}

// Session returns a copy of the stored state of a session.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*statex.SessionState, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	st, err := o.store.Load(ctx, sessionID)
	if errors.Is(err, statex.ErrStateNotFound) {
		return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownSession, sessionID)
	}
	if err != nil {
		return nil, err
	}
	st.EnsureMaps()
	return st, nil
}

// DestroySession removes a session. It fails with ErrTurnInFlight while a
// turn is running.
func (o *Orchestrator) DestroySession(ctx context.Context, sessionID string) error {
	if _, err := o.Session(ctx, sessionID); err != nil {
		return err
	}
	sessionID = strings.TrimSpace(sessionID)

	release, err := o.locker.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	if err := o.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	o.seq.forget(sessionID)
	if f, ok := o.tracker.(interface{ Forget(string) error }); ok {
		if err := f.Forget(sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("trace close failed")
		}
	}
	log.Debug().Str("session_id", sessionID).Msg("session destroyed")
	return nil
}

// HandleMessage starts one turn and returns its stream immediately. At most
// one turn per session runs at a time; a second call fails with
// ErrTurnInFlight. The stored state changes only if the turn succeeds.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (*TurnStream, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidMessage
	}

	release, err := o.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	stored, err := o.Session(ctx, sessionID)
	if err != nil {
		release()
		return nil, err
	}

	var (
		turnCtx context.Context
		cancel  context.CancelFunc
	)
	if o.turnTimeout > 0 {
		turnCtx, cancel = context.WithTimeout(ctx, o.turnTimeout)
	} else {
		turnCtx, cancel = context.WithCancel(ctx)
	}

	stream := newTurnStream()
	go func() {
		defer release()
		defer cancel()

		out, err := o.graphRunner.Invoke(turnCtx, nodex.GraphInput{
			SessionID: sessionID,
			Text:      text,
			Stored:    stored,
			Emit: func(t string) error {
				return stream.emit(turnCtx, t)
			},
		})
		if err != nil {
			log.Debug().Err(err).Str("session_id", sessionID).Msg("turn failed")
			stream.finish(TurnResult{}, err)
			return
		}
		if len(out.Booked) > 0 && o.notifier != nil {
			go o.notifyBooking(sessionID, out.Session.SequenceID, out.Booked)
		}
		stream.finish(TurnResult{
			State:  out.Session,
			Reply:  out.Reply,
			Action: out.Action,
			Tokens: out.Tokens,
		}, nil)
	}()

	return stream, nil
}

// notifyBooking is best effort; the customer already has the confirmation
// and a failed publish is only logged.
func (o *Orchestrator) notifyBooking(sessionID string, seq int64, data contractx.SlotData) {
	ctx := context.Background()
	if o.notifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.notifyTimeout)
		defer cancel()
	}

	id, err := o.notifier.Notify(ctx, booking.Request{
		SessionID:   sessionID,
		SequenceID:  seq,
		Appointment: data,
		ConfirmedAt: o.now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("booking notification failed")
		return
	}
	log.Info().Str("session_id", sessionID).Str("message_id", id).Msg("booking request forwarded")
}
