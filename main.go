package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/booking"
	llmx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/llm"
	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/safety"
	statex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/trace"
	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/turnlock"
	httptransport "github.com/tanpawarit/Chative-Bike-Shop-Assistant/internal/transport/http"
	v1 "github.com/tanpawarit/Chative-Bike-Shop-Assistant/internal/transport/http/v1"
	configx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/pkg/config"
	_ "github.com/tanpawarit/Chative-Bike-Shop-Assistant/pkg/logger/autoload"
	qstashx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/pkg/qstash"
)

type AppConfig struct {
	StoreBackend    string        `envconfig:"STORE_BACKEND" default:"memory"`
	LockBackend     string        `envconfig:"LOCK_BACKEND" default:"local"`
	NotifyBookings  bool          `envconfig:"NOTIFY_BOOKINGS" default:"false"`
	Blocklist       []string      `envconfig:"BLOCKLIST"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("assistant stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("APP")
	httpCfg := configx.MustNew[httptransport.Config]("HTTP")
	orchCfg := configx.MustNew[orchestrator.Config]("ORCHESTRATOR")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	traceCfg := configx.MustNew[trace.Config]("TRACE")

	if llmCfg.CallTimeout > 0 {
		orchCfg.CallTimeout = llmCfg.CallTimeout
	}

	models, err := orchestrator.NewRegistry(ctx, *llmCfg)
	if err != nil {
		return fmt.Errorf("build model registry: %w", err)
	}

	store, closeStore, err := newStore(ctx, appCfg.StoreBackend)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []orchestrator.Option{}
	if len(appCfg.Blocklist) > 0 {
		opts = append(opts, orchestrator.WithSafetyGate(safety.New(safety.BlocklistPredicate(appCfg.Blocklist...))))
	}

	switch strings.ToLower(appCfg.LockBackend) {
	case "", "local":
	case "redis":
		lockCfg := configx.MustNew[turnlock.RedisConfig]("REDIS_LOCK")
		lockCfg.TTL = turnlock.LockTTL(lockCfg.TTL, orchCfg.TurnTimeout)
		locker, err := turnlock.NewRedisLocker(ctx, *lockCfg)
		if err != nil {
			return fmt.Errorf("connect turn lock redis: %w", err)
		}
		defer locker.Close()
		opts = append(opts, orchestrator.WithLocker(locker))
	default:
		return fmt.Errorf("unknown lock backend %q", appCfg.LockBackend)
	}

	if traceCfg.Enabled {
		tracker, err := trace.NewJSONLTracker(*traceCfg)
		if err != nil {
			return fmt.Errorf("open trace sink: %w", err)
		}
		defer tracker.Close()
		opts = append(opts, orchestrator.WithTracker(tracker))
	}

	if appCfg.NotifyBookings {
		qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
		qstashClient := qstashx.MustNew(*qstashCfg)
		notifier, err := booking.NewNotifier(func(ctx context.Context, destination string, body []byte, dedupID string) (string, error) {
			return qstashClient.Publish(ctx, destination, body, qstashx.WithDeduplicationID(dedupID))
		}, qstashCfg.Destination)
		if err != nil {
			return fmt.Errorf("build booking notifier: %w", err)
		}
		opts = append(opts, orchestrator.WithBookingNotifier(notifier))
	}

	orch, err := orchestrator.New(store, models, *orchCfg, opts...)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	e := httptransport.NewServer(v1.FromOrchestrator(orch), *httpCfg)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", httpCfg.Addr).
			Str("store", appCfg.StoreBackend).
			Str("lock", appCfg.LockBackend).
			Bool("trace", traceCfg.Enabled).
			Msg("bike shop assistant listening")
		if err := e.Start(httpCfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context, backend string) (statex.Store, func(), error) {
	switch strings.ToLower(backend) {
	case "", "memory":
		return statex.NewMemoryStore(), func() {}, nil
	case "upstash":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := statex.NewUpstashRedisStore(*cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("build upstash store: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("ping upstash store: %w", err)
		}
		return store, func() {}, nil
	case "postgres":
		cfg := configx.MustNew[statex.PostgresConfig]("POSTGRES")
		store, err := statex.NewPostgresStore(ctx, *cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
