package app

import (
	"context"
	"fmt"
	"time"

	"debatearena/config"
	"debatearena/db"
	"debatearena/internal/debate"
	"debatearena/services"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Engine holds the wired services shared by the server and the one-shot tick
type Engine struct {
	Store   services.Store
	Machine *services.PhaseMachine
	Rooms   *services.RoomService
	// Events is nil when no Redis is configured.
	Events  *debate.StreamPublisher
	closers []func(context.Context) error
}

// Close waits for in-flight judging, then releases connections
func (e *Engine) Close(ctx context.Context) {
	e.Machine.Wait()
	for _, closeFn := range e.closers {
		if err := closeFn(ctx); err != nil {
			log.Warn().Err(err).Msg("Shutdown step failed")
		}
	}
}

// RunTicker drives the phase machine every interval until ctx is cancelled. The returned
// channel is closed once the last tick has returned, so callers must wait on it before Close.
func (e *Engine) RunTicker(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info().Dur("interval", interval).Msg("In-process ticker started")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := e.Machine.Tick(ctx); err != nil {
					log.Error().Err(err).Msg("Tick failed")
				}
			}
		}
	}()
	return done
}

// Build connects the configured backends. Without a database URI the engine runs on the
// in-memory store; without Redis events are dropped and posting is not rate limited.
func Build(ctx context.Context, cfg *config.Config) (*Engine, error) {
	e := &Engine{}

	if cfg.Database.URI != "" {
		client, database, err := db.ConnectMongoDB(ctx, cfg.Database.URI, cfg.Database.Name)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func(ctx context.Context) error { return client.Disconnect(ctx) })
		store := db.NewMongoStore(database)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		e.Store = store
	} else {
		log.Warn().Msg("No database URI configured, using in-memory store")
		e.Store = db.NewMemoryStore()
	}

	var publisher services.Publisher
	var limiter services.ActionLimiter
	if cfg.Redis.Addr != "" {
		rdb, err := debate.NewRedisClient(ctx, debate.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, closeRedis(rdb))
		e.Events = debate.NewStreamPublisher(rdb, cfg.Redis.StreamMaxLen)
		publisher = e.Events
		limiter = debate.NewRateLimiter(rdb, debate.RateLimitConfig{
			MaxMessages: cfg.RateLimit.MaxMessages,
			Window:      cfg.RateLimit.Window,
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	} else {
		log.Warn().Msg("No Redis configured, room events are not published")
	}

	var judge services.Judge
	if cfg.Gemini.ApiKey != "" {
		g, err := services.NewGeminiJudge(ctx, cfg.Gemini.ApiKey, cfg.Gemini.Model)
		if err != nil {
			return nil, fmt.Errorf("init gemini judge: %w", err)
		}
		judge = g
	} else {
		log.Warn().Msg("No Gemini API key configured, every round will be judged as failed")
	}

	judges := services.NewJudgeService(e.Store, judge, services.NewOutcome(e.Store))
	e.Machine = services.NewPhaseMachine(e.Store, judges, publisher, Timings(cfg))
	e.Rooms = services.NewRoomService(e.Store, e.Machine, limiter, publisher)
	return e, nil
}

// Timings maps the configured phase lengths onto the machine schedule
func Timings(cfg *config.Config) services.Timings {
	t := services.DefaultTimings()
	t.SideSelection = cfg.Phases.SideSelection
	t.OpeningPrep = cfg.Phases.OpeningPrep
	t.Judging = cfg.Phases.Judging
	t.JudgeTimeout = cfg.Phases.JudgeTimeout
	return t
}

func closeRedis(rdb *redis.Client) func(context.Context) error {
	return func(context.Context) error { return rdb.Close() }
}
