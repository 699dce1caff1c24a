package realign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/realign/internal/logging"
	"github.com/aretw0/realign/internal/runtime"
	"github.com/aretw0/realign/pkg/adapters/memory"
	"github.com/aretw0/realign/pkg/catalog"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/aretw0/realign/pkg/ports"
	"github.com/aretw0/realign/pkg/session"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ThreadPrefix starts every generated chat thread id.
const ThreadPrefix = "session_"

// Observer receives every committed change of a session.
// Calls for one session arrive in commit order while its lock is held, so an
// observer must return quickly and must not call back into the Assistant.
type Observer func(state *domain.State, diff *domain.StateDiff)

// Assistant is the high-level entry point of the wellness assistant.
// It owns the sessions, runs the engine under the session lock and executes
// the effects the engine asks for in the background.
type Assistant struct {
	engine    *runtime.Engine
	sessions  *session.Manager
	advice    ports.AdviceService
	chat      ports.ChatService
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	catalog   *domain.Catalog
	validator runtime.FieldValidator

	store      ports.StateStore
	locker     ports.DistributedLocker
	taskLimit  int
	newSession func() (id, thread string)

	baseCtx context.Context
	stop    context.CancelFunc
	tasks   *errgroup.Group

	mu        sync.Mutex
	closed    bool
	nextTask  uint64
	inflight  map[string]map[uint64]context.CancelFunc
	nextObs   int
	observers map[int]Observer
}

// Option defines a functional option for configuring the Assistant.
type Option func(*Assistant)

// WithAdviceService sets the profile scoring backend.
func WithAdviceService(s ports.AdviceService) Option {
	return func(a *Assistant) {
		a.advice = s
	}
}

// WithChatService sets the freeform relay backend.
func WithChatService(s ports.ChatService) Option {
	return func(a *Assistant) {
		a.chat = s
	}
}

// WithStore persists sessions in s instead of process memory.
func WithStore(s ports.StateStore) Option {
	return func(a *Assistant) {
		a.store = s
	}
}

// WithLocker coordinates sessions shared between replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(a *Assistant) {
		a.locker = l
	}
}

// WithCatalog replaces the built-in health questionnaire.
func WithCatalog(c *domain.Catalog) Option {
	return func(a *Assistant) {
		a.catalog = c
	}
}

// WithValidator replaces the default field validator.
func WithValidator(v runtime.FieldValidator) Option {
	return func(a *Assistant) {
		a.validator = v
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Assistant) {
		a.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// WithTaskLimit caps the number of concurrent remote calls. Zero means unlimited.
func WithTaskLimit(n int) Option {
	return func(a *Assistant) {
		a.taskLimit = n
	}
}

// New creates an Assistant. Advice and chat services are required.
func New(opts ...Option) (*Assistant, error) {
	a := &Assistant{
		inflight:  make(map[string]map[uint64]context.CancelFunc),
		observers: make(map[int]Observer),
		newSession: func() (string, string) {
			return uuid.NewString(), ThreadPrefix + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.advice == nil {
		return nil, errors.New("advice service is required")
	}
	if a.chat == nil {
		return nil, errors.New("chat service is required")
	}
	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.catalog == nil {
		a.catalog = catalog.Health()
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}

	engineOpts := []runtime.EngineOption{
		runtime.WithLogger(a.logger),
		runtime.WithLifecycleHooks(a.hooks),
	}
	if a.validator != nil {
		engineOpts = append(engineOpts, runtime.WithValidator(a.validator))
	}
	a.engine = runtime.NewEngine(a.catalog, engineOpts...)

	managerOpts := []session.Option{session.WithLogger(a.logger)}
	if a.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(a.locker))
	}
	a.sessions = session.NewManager(a.store, managerOpts...)

	a.baseCtx, a.stop = context.WithCancel(context.Background())
	a.tasks = &errgroup.Group{}
	if a.taskLimit > 0 {
		a.tasks.SetLimit(a.taskLimit)
	}
	return a, nil
}

// Catalog returns the questionnaire in use.
func (a *Assistant) Catalog() *domain.Catalog {
	return a.catalog
}

// Sessions exposes the session manager, e.g. for inspection tools.
func (a *Assistant) Sessions() *session.Manager {
	return a.sessions
}

// AddObserver registers o and returns a function that removes it.
func (a *Assistant) AddObserver(o Observer) (remove func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextObs
	a.nextObs++
	a.observers[id] = o
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.observers, id)
	}
}

// Open starts a new session showing the welcome message.
func (a *Assistant) Open(ctx context.Context) (*domain.State, error) {
	id, thread := a.newSession()
	state := a.engine.Start(id, thread)

	if err := a.sessions.Create(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	a.logger.Info("Session opened", "session_id", id)
	a.notify(nil, state)
	return state, nil
}

// Select picks a service for the session. Choosing Health Advice again
// restarts the questionnaire and abandons in-flight requests.
func (a *Assistant) Select(ctx context.Context, sessionID, option string) (*domain.State, error) {
	return a.apply(ctx, sessionID, domain.SelectEvent{Option: option})
}

// Submit forwards raw user text to the session.
func (a *Assistant) Submit(ctx context.Context, sessionID, text string) (*domain.State, error) {
	return a.apply(ctx, sessionID, domain.InputEvent{Text: text})
}

// State returns the current state of a session.
func (a *Assistant) State(ctx context.Context, sessionID string) (*domain.State, error) {
	return a.sessions.Load(ctx, sessionID)
}

// List returns the IDs of live sessions.
func (a *Assistant) List(ctx context.Context) ([]string, error) {
	return a.sessions.List(ctx)
}

// Close discards a session and cancels its outstanding requests.
func (a *Assistant) Close(ctx context.Context, sessionID string) error {
	if _, err := a.sessions.Load(ctx, sessionID); err != nil {
		return err
	}
	a.cancelInflight(sessionID)
	if err := a.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	a.logger.Info("Session closed", "session_id", sessionID)
	return nil
}

// Wait blocks until every background request has delivered its result.
// It must not race with calls that start new requests.
func (a *Assistant) Wait() error {
	return a.tasks.Wait()
}

// Shutdown cancels outstanding requests and waits for their tasks to exit.
// Cancelled requests are recorded as failures, so sessions kept in a shared
// store come back usable.
func (a *Assistant) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.stop()

	done := make(chan error, 1)
	go func() { done <- a.tasks.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Assistant) apply(ctx context.Context, sessionID string, ev domain.Event) (*domain.State, error) {
	var effects []domain.Effect
	_, after, err := a.sessions.Update(ctx, sessionID,
		func(ctx context.Context, current *domain.State) (*domain.State, error) {
			next, eff, err := a.engine.Apply(ctx, current, ev)
			if err != nil {
				return nil, err
			}
			effects = eff
			return next, nil
		},
		func(before, after *domain.State) {
			if before.Generation != after.Generation {
				a.cancelInflight(sessionID)
			}
			a.notify(before, after)
		},
	)
	if err != nil {
		return nil, err
	}

	for _, eff := range effects {
		a.dispatch(sessionID, eff)
	}
	return after, nil
}

func (a *Assistant) notify(before, after *domain.State) {
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}

	a.mu.Lock()
	observers := make([]Observer, 0, len(a.observers))
	for _, o := range a.observers {
		observers = append(observers, o)
	}
	a.mu.Unlock()

	for _, o := range observers {
		o(after, diff)
	}
}

// dispatch runs eff in the background and feeds its outcome back as an event.
// Every outcome is delivered, failures included. Restarts are filtered by the
// engine through the generation and closed sessions by the store.
func (a *Assistant) dispatch(sessionID string, eff domain.Effect) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.logger.Warn("Rejecting effect after shutdown", "session_id", sessionID)
		a.deliver(context.Background(), sessionID, eff, failed(eff, errShutdown))
		return
	}
	taskID := a.nextTask
	a.nextTask++
	ctx, cancel := context.WithCancel(a.baseCtx)
	if a.inflight[sessionID] == nil {
		a.inflight[sessionID] = make(map[uint64]context.CancelFunc)
	}
	a.inflight[sessionID][taskID] = cancel
	a.mu.Unlock()

	a.tasks.Go(func() error {
		defer a.finish(sessionID, taskID)

		ev := a.execute(ctx, sessionID, eff)
		a.deliver(context.WithoutCancel(ctx), sessionID, eff, ev)
		return nil
	})
}

var errShutdown = errors.New("assistant is shutting down")

// deliver applies the outcome of eff. When that fails it falls back to a
// plain failure so the session does not stay busy.
func (a *Assistant) deliver(ctx context.Context, sessionID string, eff domain.Effect, ev domain.Event) {
	_, err := a.apply(ctx, sessionID, ev)
	if err == nil || errors.Is(err, domain.ErrSessionNotFound) {
		return
	}
	a.logger.Error("Failed to deliver request result", "session_id", sessionID, "err", err)

	if _, err := a.apply(ctx, sessionID, failed(eff, err)); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		a.logger.Error("Failed to release busy session", "session_id", sessionID, "err", err)
	}
}

// failed builds the resolution event reporting err for eff.
func failed(eff domain.Effect, err error) domain.Event {
	switch eff := eff.(type) {
	case domain.SubmitAdviceEffect:
		return domain.AdviceResolvedEvent{Generation: eff.Generation, Err: err}
	case domain.SendChatEffect:
		return domain.ChatResolvedEvent{Generation: eff.Generation, Err: err}
	default:
		return domain.ChatResolvedEvent{Err: err}
	}
}

func (a *Assistant) finish(sessionID string, taskID uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if tasks, ok := a.inflight[sessionID]; ok {
		if cancel, ok := tasks[taskID]; ok {
			cancel()
			delete(tasks, taskID)
		}
		if len(tasks) == 0 {
			delete(a.inflight, sessionID)
		}
	}
}

// cancelInflight aborts every outstanding request of a session.
func (a *Assistant) cancelInflight(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, cancel := range a.inflight[sessionID] {
		cancel()
	}
}

func (a *Assistant) execute(ctx context.Context, sessionID string, eff domain.Effect) domain.Event {
	switch eff := eff.(type) {
	case domain.SubmitAdviceEffect:
		var report *domain.Report
		err := a.call(ctx, sessionID, domain.EndpointAdvice, func(ctx context.Context) error {
			var err error
			report, err = a.advice.Submit(ctx, eff.Profile.Payload())
			return err
		})
		return domain.AdviceResolvedEvent{Generation: eff.Generation, Report: report, Err: err}

	case domain.SendChatEffect:
		var reply string
		err := a.call(ctx, sessionID, domain.EndpointChat, func(ctx context.Context) error {
			var err error
			reply, err = a.chat.Send(ctx, eff.Query, eff.ThreadID)
			return err
		})
		return domain.ChatResolvedEvent{Generation: eff.Generation, Reply: reply, Err: err}

	default:
		// Unknown effects resolve as a failed chat so the session never hangs.
		return failed(eff, fmt.Errorf("unsupported effect %T", eff))
	}
}

func (a *Assistant) call(ctx context.Context, sessionID, endpoint string, fn func(context.Context) error) error {
	base := domain.EventBase{Timestamp: time.Now(), Type: domain.EventRequest, SessionID: sessionID}
	if a.hooks.OnRequest != nil {
		a.hooks.OnRequest(ctx, &domain.RequestEvent{EventBase: base, Endpoint: endpoint})
	}

	start := time.Now()
	err := fn(ctx)

	if err != nil {
		a.logger.Warn("Remote call failed", "session_id", sessionID, "endpoint", endpoint, "err", err)
	}
	if a.hooks.OnResponse != nil {
		a.hooks.OnResponse(ctx, &domain.RequestEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventResponse, SessionID: sessionID},
			Endpoint:  endpoint,
			Duration:  time.Since(start),
			IsError:   err != nil,
		})
	}
	return err
}
