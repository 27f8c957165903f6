package bootstrap

import (
	"context"
	"fmt"
	"io"
	"time"

	"restaurant-booking-be/internal/config"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/internal/repository/cache"
	"restaurant-booking-be/internal/repository/memory"
	"restaurant-booking-be/pkg/booking/commit"
	"restaurant-booking-be/pkg/booking/dispatch"
	"restaurant-booking-be/pkg/booking/intent"
	"restaurant-booking-be/pkg/booking/interpret"
	"restaurant-booking-be/pkg/booking/orchestrator"
	"restaurant-booking-be/pkg/booking/response"
	"restaurant-booking-be/pkg/booking/session"
	"restaurant-booking-be/pkg/booking/slotfill"
	"restaurant-booking-be/pkg/booking/validator"
	"restaurant-booking-be/pkg/llm/factory"
	"restaurant-booking-be/pkg/restaurant"

	"github.com/redis/go-redis/v9"
)

// Agent is the conversation core with its collaborators wired from config.
type Agent struct {
	Orchestrator *orchestrator.Orchestrator
	Store        session.Store
	Restaurant   *restaurant.Client
	closers      []io.Closer
}

func (a *Agent) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

// NewAgent builds the orchestrator. rdb may be nil unless the redis store
// backend is configured. owners may be nil, in which case update and cancel
// are not restricted to the user's own bookings.
func NewAgent(ctx context.Context, cfg *config.Config, rdb *redis.Client, owners dispatch.Ownership, log, apiLog logger.ILogger, opts ...orchestrator.Option) (*Agent, error) {
	agent := &Agent{}

	// Working memory and per-session locking
	var locker session.Locker
	switch cfg.Agent.StoreBackend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("store backend redis requires REDIS_URL")
		}
		agent.Store = cache.NewConversationRepository(rdb, cfg.Agent.SessionTTL)
		locker = session.NewRedisLocker(rdb, cfg.Agent.LockTTL)
	case "memory", "":
		agent.Store = memory.NewConversationRepository(cfg.Agent.SessionTTL)
		locker = session.NewLocalLocker(cfg.Agent.LockTTL)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Agent.StoreBackend)
	}

	// Interpretation, with the keyword interpreter as the floor
	provider, err := factory.NewLLMProvider(ctx, factory.ProviderConfig{
		Type:    cfg.LLM.Provider,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	if c, ok := provider.(io.Closer); ok {
		agent.closers = append(agent.closers, c)
	}

	var interpreter interpret.Interpreter = interpret.NewKeywordInterpreter()
	if provider != nil {
		interpreter = interpret.NewLLMInterpreter(provider, interpreter, log)
	}
	guard := interpret.NewGuard(interpreter, cfg.Agent.InterpretTimeout, log)

	templates := response.NewTemplateGenerator(cfg.Restaurant.Name)
	var responder response.Generator = templates
	if provider != nil && cfg.Agent.UseLLMResponses {
		responder = response.NewLLMGenerator(provider, templates, log)
	}
	log.Info("BOOTSTRAP", "Agent configured", map[string]interface{}{
		"llm_provider":  cfg.LLM.Provider,
		"llm_responses": provider != nil && cfg.Agent.UseLLMResponses,
		"store":         cfg.Agent.StoreBackend,
	})

	// Booking API
	agent.Restaurant = restaurant.NewClient(restaurant.Config{
		BaseURL:            cfg.Restaurant.BaseURL,
		Token:              cfg.Restaurant.Token,
		Restaurant:         cfg.Restaurant.Name,
		ChannelCode:        cfg.Restaurant.ChannelCode,
		Timeout:            cfg.Restaurant.Timeout,
		RatePerSec:         cfg.Restaurant.RatePerSec,
		Burst:              cfg.Restaurant.Burst,
		LeaveTimeConfirmed: cfg.Restaurant.LeaveConfirm,
	}, apiLog)

	v := validator.New()
	dispatcher := dispatch.New(agent.Restaurant, v, dispatch.Options{
		Retry: dispatch.RetryPolicy{
			MaxAttempts:     cfg.Agent.RetryMaxAttempts,
			InitialInterval: cfg.Agent.RetryInitialInterval,
			MaxInterval:     cfg.Agent.RetryMaxInterval,
			Multiplier:      cfg.Agent.RetryMultiplier,
			Jitter:          0.2,
		},
		ToolTimeout:   cfg.Agent.ToolTimeout,
		MaxSearchDays: cfg.Agent.MaxSearchDays,
		Ownership:     owners,
	}, log)

	opts = append([]orchestrator.Option{orchestrator.WithLockWait(cfg.Agent.LockWait)}, opts...)
	agent.Orchestrator = orchestrator.New(
		agent.Store,
		locker,
		intent.NewRouter(guard, log, time.Now),
		slotfill.NewController(guard, v, log, time.Now),
		commit.NewCoordinator(dispatcher, log),
		responder,
		log,
		opts...,
	)
	return agent, nil
}
