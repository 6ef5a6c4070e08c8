// Package app wires configuration into a running board: storage, the task store, the
// save scheduler, the AI client and backend, event publishing and the HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/taskboard/internal/auth"
	"github.com/benvon/taskboard/internal/board"
	"github.com/benvon/taskboard/internal/clock"
	"github.com/benvon/taskboard/internal/config"
	"github.com/benvon/taskboard/internal/events"
	"github.com/benvon/taskboard/internal/handlers"
	"github.com/benvon/taskboard/internal/notify"
	"github.com/benvon/taskboard/internal/persist"
	"github.com/benvon/taskboard/internal/priority"
	"github.com/benvon/taskboard/internal/reset"
	"github.com/benvon/taskboard/internal/services/ai"
	"github.com/benvon/taskboard/internal/services/suggest"
	"github.com/benvon/taskboard/internal/storage"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	rabbitMQMaxElapsed = 2 * time.Minute
	closeTimeout       = 10 * time.Second
)

// App holds every long-lived component of a running board
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Clock     clock.Clock
	Adapter   *storage.Adapter
	Store     *board.Store
	Feed      *notify.Feed
	Scheduler *persist.Scheduler
	Reset     *reset.Flow
	Publisher events.Publisher

	// Optional components; nil when not configured
	Suggester *suggest.Client
	Backend   *ai.Backend
	Verifier  *auth.Verifier
	Redis     *redis.Client

	backend   storage.Backend
	ownsRedis bool
	closeOnce sync.Once
}

// Option configures New
type Option func(*options)

type options struct {
	clock     clock.Clock
	backend   storage.Backend
	completer ai.Completer
	publisher events.Publisher
}

// WithClock injects the clock shared by the store, scheduler and reset flow
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithStorageBackend uses backend instead of opening cfg.StorageDriver
func WithStorageBackend(b storage.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithCompleter hosts the AI backend on completer instead of the OpenAI provider
func WithCompleter(c ai.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithPublisher uses p instead of connecting to RABBITMQ_URL
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// New builds the application. A snapshot that cannot be read is reported and the board
// starts empty; every other failure is returned.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Clock:  o.clock,
		Feed:   notify.NewFeed(notify.DefaultCapacity, o.clock),
	}

	if err := a.openStorage(o.backend); err != nil {
		return nil, err
	}
	if err := a.openRedis(); err != nil {
		a.closeResources()
		return nil, err
	}

	keywords := priority.DefaultKeywords()
	if cfg.PriorityKeywordsFile != "" {
		kw, err := priority.LoadKeywords(cfg.PriorityKeywordsFile)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("failed to load priority keywords: %w", err)
		}
		keywords = kw
	}

	a.Publisher = o.publisher
	if a.Publisher == nil {
		a.Publisher = a.connectPublisher(ctx)
	}

	a.Suggester = a.newSuggester(ctx)
	a.Backend = a.newAIBackend(o.completer)
	a.Verifier = a.newVerifier()

	storeOpts := []board.Option{
		board.WithClock(o.clock),
		board.WithLogger(logger),
		board.WithNotifier(a.Feed),
		board.WithPublisher(a.Publisher),
		board.WithHeuristic(priority.New(keywords)),
		// The scheduler is created below; the hook only fires on mutations.
		board.WithChangeHook(func() { a.Scheduler.Request() }),
	}
	if a.Suggester != nil {
		storeOpts = append(storeOpts, board.WithSuggester(a.Suggester))
	}
	a.Store = board.NewStore(storeOpts...)

	a.Scheduler = persist.NewScheduler(a.Adapter, a.Store.Snapshot, logger,
		persist.WithClock(o.clock),
		persist.WithQuietPeriod(cfg.SaveDebounce),
		persist.WithFlushInterval(cfg.AutosaveInterval),
		persist.WithErrorHandler(func(err error) {
			a.Feed.Notify(notify.LevelError, "Could not save the board: "+err.Error())
		}),
	)

	a.Reset = reset.NewFlow(a.wipe,
		reset.WithClock(o.clock),
		reset.WithLogger(logger),
		reset.WithNotifier(a.Feed),
		reset.WithCountdown(cfg.ResetCountdown, reset.DefaultTickInterval),
	)

	a.restore(ctx)
	return a, nil
}

func (a *App) openStorage(b storage.Backend) error {
	if b == nil {
		var err error
		b, err = storage.Open(a.Config.StorageDriver, a.Config.StorageDSN)
		if err != nil {
			return fmt.Errorf("failed to open %s storage: %w", a.Config.StorageDriver, err)
		}
	}
	a.backend = b
	a.Adapter = storage.NewAdapter(b, a.Config.StoragePrefix)
	a.Logger.Info("storage_opened", zap.String("driver", a.Config.StorageDriver))
	return nil
}

// openRedis reuses the storage connection when the board itself lives in Redis
func (a *App) openRedis() error {
	if rb, ok := a.backend.(*storage.RedisBackend); ok {
		a.Redis = rb.Client()
		return nil
	}
	if a.Config.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(a.Config.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	a.Redis = redis.NewClient(opts)
	a.ownsRedis = true
	a.Logger.Info("connected_to_redis")
	return nil
}

// connectPublisher retries RabbitMQ with exponential backoff, since the broker often
// starts after the server in compose setups. Publishing is optional, so failure falls
// back to a no-op publisher.
func (a *App) connectPublisher(ctx context.Context) events.Publisher {
	if a.Config.RabbitMQURL == "" {
		return events.NopPublisher{}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = rabbitMQMaxElapsed

	var pub *events.RabbitMQPublisher
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		p, err := events.NewRabbitMQPublisher(a.Config.RabbitMQURL)
		if err != nil {
			return err
		}
		pub = p
		return nil
	}, backoff.WithContext(policy, ctx), func(err error, delay time.Duration) {
		a.Logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
	})
	if err != nil {
		a.Logger.Error("rabbitmq_unavailable_events_disabled", zap.Int("attempts", attempt), zap.Error(err))
		return events.NopPublisher{}
	}
	a.Logger.Info("connected_to_rabbitmq")
	return pub
}

func (a *App) newSuggester(ctx context.Context) *suggest.Client {
	url := a.Config.SuggestionURL()
	if url == "" {
		a.Logger.Info("ai_suggestions_disabled")
		return nil
	}

	var cache suggest.Cache = suggest.NewMemoryCache(a.Config.AICacheTTL, a.Clock)
	if a.Redis != nil {
		cache = suggest.NewRedisCache(a.Redis, suggest.DefaultRedisCachePrefix, a.Config.AICacheTTL)
	}

	httpClient := suggest.NewHTTPClient(ctx, suggest.OAuthConfig{
		ClientID:     a.Config.AIOAuthClientID,
		ClientSecret: a.Config.AIOAuthClientSecret,
		TokenURL:     a.Config.AIOAuthTokenURL,
		Scopes:       a.Config.AIOAuthScopes,
	}, a.Config.AITimeout)

	a.Logger.Info("ai_suggestions_enabled",
		zap.String("backend_url", url),
		zap.Bool("oauth", a.Config.AIOAuthTokenURL != ""),
		zap.Bool("shared_cache", a.Redis != nil),
	)
	return suggest.NewClient(url,
		suggest.WithHTTPClient(httpClient),
		suggest.WithCache(cache),
		suggest.WithLogger(a.Logger),
	)
}

func (a *App) newAIBackend(completer ai.Completer) *ai.Backend {
	if completer == nil {
		if a.Config.OpenAIKey == "" {
			return nil
		}
		provider := ai.NewOpenAIProvider(a.Config.OpenAIKey, a.Config.AIBaseURL, a.Config.AIModel, a.Logger, a.Config.ServerDebugMode)
		a.Logger.Info("ai_backend_enabled", zap.String("model", provider.Model()))
		completer = provider
	}
	return ai.NewBackend(completer, a.Logger)
}

func (a *App) newVerifier() *auth.Verifier {
	if a.Config.JWKSURL == "" {
		return nil
	}
	keys := auth.NewRemoteKeySet(a.Config.JWKSURL, &http.Client{Timeout: 10 * time.Second}, a.Clock)
	a.Logger.Info("api_auth_enabled", zap.String("issuer", a.Config.JWTIssuer))
	return auth.NewVerifier(keys, a.Config.JWTIssuer, a.Config.JWTAudience, a.Clock)
}

// restore loads the persisted board. Corrupt or unreadable data leaves the board empty
// and tells the user instead of failing startup.
func (a *App) restore(ctx context.Context) {
	snap, err := a.Adapter.Load(ctx)
	var loadErr *storage.LoadError
	switch {
	case errors.As(err, &loadErr):
		a.Logger.Error("snapshot_load_failed", zap.String("key", loadErr.Key), zap.Error(err))
		a.Feed.Notify(notify.LevelError, "Saved board could not be read; starting empty")
		return
	case err != nil:
		a.Logger.Error("snapshot_load_failed", zap.Error(err))
		a.Feed.Notify(notify.LevelError, "Saved board could not be read; starting empty")
		return
	}
	a.Store.Replace(ctx, snap.Tasks)
	a.Logger.Info("snapshot_loaded", zap.Int("task_count", len(snap.Tasks)))
}

// wipe is the reset action. Memory and storage are cleared while no snapshot write can
// run, then the suggestion cache is dropped.
func (a *App) wipe(ctx context.Context) error {
	var errs []error
	a.Scheduler.Exclusive(func() {
		a.Store.Wipe(ctx)
		if err := a.Adapter.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	})
	if a.Suggester != nil {
		if err := a.Suggester.ClearCache(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to clear suggestion cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

// HealthChecks returns the dependency checks for /healthz?mode=extended
func (a *App) HealthChecks() map[string]handlers.CheckFunc {
	checks := map[string]handlers.CheckFunc{
		"storage": a.backend.Ping,
	}
	if a.Redis != nil && a.ownsRedis {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	if _, ok := a.Publisher.(events.NopPublisher); !ok {
		checks["rabbitmq"] = a.Publisher.HealthCheck
	}
	return checks
}

// Run drives the periodic safety flush until ctx is cancelled, then writes once more
func (a *App) Run(ctx context.Context) {
	a.Scheduler.Run(ctx)
}

// Close flushes the board and releases connections. It is safe to call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if flushErr := a.Scheduler.Flush(ctx); flushErr != nil {
			err = fmt.Errorf("final save failed: %w", flushErr)
		}
		if pubErr := a.Publisher.Close(); pubErr != nil {
			a.Logger.Warn("failed_to_close_publisher", zap.Error(pubErr))
		}
		a.closeResources()
	})
	return err
}

func (a *App) closeResources() {
	if a.ownsRedis && a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.Logger.Warn("failed_to_close_storage", zap.Error(err))
		}
	}
}
