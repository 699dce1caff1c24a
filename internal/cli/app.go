package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/realign"
	"github.com/aretw0/realign/internal/config"
	"github.com/aretw0/realign/internal/validator"
	"github.com/aretw0/realign/pkg/adapters/advice"
	"github.com/aretw0/realign/pkg/adapters/memory"
	"github.com/aretw0/realign/pkg/adapters/redis"
	"github.com/aretw0/realign/pkg/catalog"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/aretw0/realign/pkg/observability"
	"github.com/aretw0/realign/pkg/persistence/middleware"
	"github.com/aretw0/realign/pkg/ports"
)

// App bundles an Assistant with the infrastructure it was built on.
type App struct {
	Config    *config.Config
	Assistant *realign.Assistant
	Metrics   *observability.Metrics
	Store     ports.StateStore
	Logger    *slog.Logger

	closers []func() error
}

// AppOption tweaks how NewApp wires the Assistant.
type AppOption func(*appOptions)

type appOptions struct {
	advice ports.AdviceService
	chat   ports.ChatService
	store  ports.StateStore
}

// WithServices replaces the HTTP advice client, mostly for tests.
func WithServices(adv ports.AdviceService, chat ports.ChatService) AppOption {
	return func(o *appOptions) {
		o.advice = adv
		o.chat = chat
	}
}

// WithBackingStore skips store construction from config.
func WithBackingStore(s ports.StateStore) AppOption {
	return func(o *appOptions) {
		o.store = s
	}
}

// NewApp builds an Assistant from cfg using the standard conventions:
// the configured store wrapped in encryption when a key is set, the
// configured catalog, and logging plus metrics hooks.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{
		Config:  cfg,
		Metrics: observability.NewMetrics(),
		Logger:  logger,
	}

	assistantOpts := []realign.Option{
		realign.WithLogger(logger),
		realign.WithTaskLimit(cfg.TaskLimit),
		realign.WithLifecycleHooks(observability.CombineHooks(
			observability.LoggingHooks(logger),
			app.Metrics.Hooks(),
		)),
	}

	// 1. Services
	if o.advice == nil {
		client := advice.New(cfg.AdviceBaseURL,
			advice.WithTimeout(cfg.RequestTimeout),
			advice.WithLogger(logger),
		)
		o.advice, o.chat = client, client
	}
	assistantOpts = append(assistantOpts,
		realign.WithAdviceService(o.advice),
		realign.WithChatService(o.chat),
	)

	// 2. Catalog
	if cfg.CatalogPath != "" {
		c, err := LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		assistantOpts = append(assistantOpts, realign.WithCatalog(c))
	}

	// 3. Persistence
	store, locker, err := app.openStore(ctx, o.store)
	if err != nil {
		return nil, err
	}
	app.Store = store
	assistantOpts = append(assistantOpts, realign.WithStore(store))
	if locker != nil {
		assistantOpts = append(assistantOpts, realign.WithLocker(locker))
	}

	a, err := realign.New(assistantOpts...)
	if err != nil {
		_ = app.closeAll()
		return nil, fmt.Errorf("error initializing assistant: %w", err)
	}
	app.Assistant = a

	return app, nil
}

// OpenStore builds only the persistence stack, for commands that manage
// sessions without running the wizard.
func OpenStore(ctx context.Context, cfg *config.Config) (ports.StateStore, func() error, error) {
	app := &App{Config: cfg}
	store, _, err := app.openStore(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return store, app.closeAll, nil
}

func (a *App) openStore(ctx context.Context, base ports.StateStore) (ports.StateStore, ports.DistributedLocker, error) {
	var locker ports.DistributedLocker

	if base == nil {
		switch a.Config.Store {
		case config.StoreRedis:
			rs := redis.New(a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB,
				redis.WithPrefix(a.Config.Redis.Prefix),
				redis.WithTTL(a.Config.Redis.TTL),
			)
			if err := rs.Ping(ctx); err != nil {
				_ = rs.Close()
				return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", a.Config.Redis.Addr, err)
			}
			a.closers = append(a.closers, rs.Close)
			base = rs
			locker = redis.NewLocker(rs.Client(), a.Config.Redis.Prefix)
		default:
			base = memory.NewStore()
		}
	}

	active, fallback, err := a.Config.Keys()
	if err != nil {
		_ = a.closeAll()
		return nil, nil, err
	}
	if active == nil {
		return base, locker, nil
	}

	return middleware.Chain(base, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallback,
	})), locker, nil
}

// Close drains outstanding requests and releases the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Assistant != nil {
		errs = append(errs, a.Assistant.Shutdown(ctx))
	}
	errs = append(errs, a.closeAll())
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// LoadCatalog reads a YAML questionnaire and checks it in strict mode,
// reporting every problem at once.
func LoadCatalog(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	questions, err := catalog.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := validator.ValidateCatalog(questions, true); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return domain.NewCatalog(questions)
}
