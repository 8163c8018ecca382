// Package resolva provides an agentic resolution engine for production
// incidents. An Engine runs a bounded think/act/observe loop: a Strategy
// decides which diagnostic tool to call next, an Executor runs it with
// retries, and an Aggregator collects scored evidence until it is
// sufficient to compose a grounded answer. Sessions that exhaust their
// step budget still produce a low-confidence fallback answer built from
// whatever evidence was gathered.
package resolva

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva/llm"
)

const (
	// DefaultStepBudget is the maximum number of act steps per session.
	DefaultStepBudget = 6

	// DefaultRetryLimit is the number of retries after the first failed
	// tool call.
	DefaultRetryLimit = 2

	// DefaultCallTimeout bounds a single tool call attempt.
	DefaultCallTimeout = 30 * time.Second

	// DefaultEvidenceCap is the maximum number of evidence items kept
	// per session.
	DefaultEvidenceCap = 20

	// DefaultScoreThreshold is the best-score bar for sufficiency.
	DefaultScoreThreshold = 0.6

	// DefaultMeanThreshold is the top-k mean bar for sufficiency.
	DefaultMeanThreshold = 0.5

	// DefaultTopK is the number of top evidence items averaged for the
	// mean sufficiency check.
	DefaultTopK = 3
)

// Recorder persists session steps and final answers. Implementations
// must be safe for concurrent use across sessions.
type Recorder interface {
	Record(ctx context.Context, sessionID string, step Step) error
	Finalize(ctx context.Context, session *Session, answer *Answer) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, Step) error        { return nil }
func (nopRecorder) Finalize(context.Context, *Session, *Answer) error { return nil }

type engineConfig struct {
	stepBudget      int
	retryLimit      int
	callTimeout     time.Duration
	sessionTimeout  time.Duration
	evidenceLimit   int
	scoreThreshold  float64
	meanThreshold   float64
	topK            int
	logger          *slog.Logger
	recorder        Recorder
	strategies      map[string]Strategy
	defaultStrategy string
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithStepBudget sets the maximum number of act steps per session.
func WithStepBudget(n int) Option {
	return func(c *engineConfig) {
		if n > 0 {
			c.stepBudget = n
		}
	}
}

// WithRetryLimit sets the per-tool retry limit.
func WithRetryLimit(n int) Option {
	return func(c *engineConfig) {
		if n >= 0 {
			c.retryLimit = n
		}
	}
}

// WithCallTimeout bounds each tool call attempt.
func WithCallTimeout(d time.Duration) Option {
	return func(c *engineConfig) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithSessionTimeout bounds a whole session. Zero derives the deadline
// from the step budget and call timeout.
func WithSessionTimeout(d time.Duration) Option {
	return func(c *engineConfig) {
		if d > 0 {
			c.sessionTimeout = d
		}
	}
}

// WithEvidenceLimit caps the number of evidence items kept per session.
func WithEvidenceLimit(n int) Option {
	return func(c *engineConfig) {
		if n > 0 {
			c.evidenceLimit = n
		}
	}
}

// WithScoreThreshold sets the best-score sufficiency bar.
func WithScoreThreshold(v float64) Option {
	return func(c *engineConfig) {
		if v > 0 && v <= 1 {
			c.scoreThreshold = v
		}
	}
}

// WithLogger sets the logger used by the engine and its sessions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the session recorder.
func WithRecorder(r Recorder) Option {
	return func(c *engineConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithStrategy registers a named strategy. The first registered
// strategy becomes the default unless WithDefaultStrategy overrides it.
func WithStrategy(s Strategy) Option {
	return func(c *engineConfig) {
		if s == nil {
			return
		}
		c.strategies[s.Name()] = s
		if c.defaultStrategy == "" {
			c.defaultStrategy = s.Name()
		}
	}
}

// WithDefaultStrategy selects which registered strategy Resolve uses
// when the caller does not name one.
func WithDefaultStrategy(name string) Option {
	return func(c *engineConfig) {
		c.defaultStrategy = name
	}
}

// Engine runs resolution sessions against a tool registry.
type Engine struct {
	llm      llm.Client
	registry *Registry
	executor *Executor
	engineConfig
}

// New creates an Engine. The built-in rule strategy is always
// available; WithStrategy adds more.
func New(llmClient llm.Client, registry *Registry, options ...Option) (*Engine, error) {
	if llmClient == nil {
		return nil, goerr.New("llm client is required")
	}
	if registry == nil {
		return nil, goerr.New("registry is required")
	}

	cfg := engineConfig{
		stepBudget:     DefaultStepBudget,
		retryLimit:     DefaultRetryLimit,
		callTimeout:    DefaultCallTimeout,
		evidenceLimit:  DefaultEvidenceCap,
		scoreThreshold: DefaultScoreThreshold,
		meanThreshold:  DefaultMeanThreshold,
		topK:           DefaultTopK,
		logger:         defaultLogger,
		recorder:       nopRecorder{},
		strategies:     map[string]Strategy{},
	}

	builtin := newDefaultStrategy()
	cfg.strategies[builtin.Name()] = builtin
	cfg.defaultStrategy = builtin.Name()

	for _, opt := range options {
		opt(&cfg)
	}

	if _, ok := cfg.strategies[cfg.defaultStrategy]; !ok {
		return nil, goerr.New("default strategy is not registered",
			goerr.V("strategy", cfg.defaultStrategy))
	}
	if cfg.sessionTimeout == 0 {
		cfg.sessionTimeout = time.Duration(cfg.stepBudget) * cfg.callTimeout
	}

	executor := NewExecutor(registry,
		WithExecutorRetryLimit(cfg.retryLimit),
		WithExecutorCallTimeout(cfg.callTimeout),
	)

	return &Engine{
		llm:          llmClient,
		registry:     registry,
		executor:     executor,
		engineConfig: cfg,
	}, nil
}

// Strategies returns the names of all registered strategies, sorted.
func (x *Engine) Strategies() []string {
	names := make([]string, 0, len(x.strategies))
	for name := range x.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns the registered tool specifications.
func (x *Engine) Specs() []ToolSpec {
	return x.registry.Specs()
}

// ExecuteTool runs a single registered tool outside of a session. It
// is intended for direct tool invocation endpoints and tests.
func (x *Engine) ExecuteTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	result, failure, err := x.executor.Execute(ctx, name, args)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, goerr.New(failure.Message,
			goerr.V("tool", failure.Tool),
			goerr.V("attempts", failure.Attempts))
	}
	return result, nil
}

// Resolve runs a resolution session for the given query text using the
// default strategy. It always returns an answer on success paths,
// including the budget-exhaustion fallback.
func (x *Engine) Resolve(ctx context.Context, queryText string) (*Answer, error) {
	return x.ResolveWith(ctx, queryText, x.defaultStrategy)
}

// ResolveWith runs a resolution session with a named strategy.
func (x *Engine) ResolveWith(ctx context.Context, queryText string, strategyName string) (*Answer, error) {
	strategy, ok := x.strategies[strategyName]
	if !ok {
		return nil, goerr.Wrap(ErrUnknownStrategy, strategyName)
	}

	return x.run(ctx, ParseQuery(queryText), strategy)
}

func (x *Engine) run(ctx context.Context, query Query, strategy Strategy) (*Answer, error) {
	session := NewSession(query, strategy.Name())
	logger := x.logger.With("session_id", session.ID, "strategy", strategy.Name())
	ctx = ctxWithLogger(ctx, logger)

	ctx, cancel := context.WithTimeout(ctx, x.sessionTimeout)
	defer cancel()

	started := time.Now()
	logger.Info("session started", "query", query.Text)

	aggregator := NewAggregator(
		WithEvidenceCap(x.evidenceLimit),
		WithSufficiencyThreshold(x.scoreThreshold),
		WithMeanThreshold(x.meanThreshold),
		WithTopK(x.topK),
	)

	called := map[string]int{}
	var lastFailure *ToolFailure

	for session.ActCount() < x.stepBudget {
		turn := &Turn{
			Query:       query,
			ActCount:    session.ActCount(),
			Budget:      x.stepBudget,
			Sufficient:  aggregator.Sufficient(),
			Evidence:    aggregator.Items(),
			Called:      called,
			LastFailure: lastFailure,
		}

		decision, err := strategy.Next(ctx, turn)
		if err != nil {
			return x.fail(ctx, session, goerr.Wrap(err, "strategy failed",
				goerr.V("strategy", strategy.Name())))
		}

		x.record(ctx, session, Step{Kind: StepThink, Note: decision.Note})

		if decision.Finish {
			break
		}

		x.record(ctx, session, Step{Kind: StepAct, Tool: decision.Tool, Args: decision.Args})
		logger.Debug("tool call", "tool", decision.Tool, "args", decision.Args)

		result, failure, err := x.executor.Execute(ctx, decision.Tool, decision.Args)
		if err != nil {
			if ctxErr := sessionErr(ctx, err); ctxErr != nil {
				return x.fail(ctx, session, ctxErr)
			}
			if errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrUnknownTool) {
				// A bad decision from the strategy degrades into a failed
				// observation instead of aborting the session.
				failure = &ToolFailure{Tool: decision.Tool, Message: err.Error(), Attempts: 1}
			} else {
				return x.fail(ctx, session, err)
			}
		}

		called[decision.Tool]++
		lastFailure = failure

		if failure != nil {
			logger.Warn("tool failed", "tool", failure.Tool, "attempts", failure.Attempts, "message", failure.Message)
			x.record(ctx, session, Step{Kind: StepObserve, Tool: decision.Tool, Failure: failure})
			continue
		}

		x.record(ctx, session, Step{Kind: StepObserve, Tool: decision.Tool, Result: result})
		aggregator.AddObservation(decision.Tool, result)
	}

	var answer *Answer
	if aggregator.Sufficient() {
		text, err := x.composeAnswer(ctx, query, aggregator.Items())
		if err != nil {
			if ctxErr := sessionErr(ctx, err); ctxErr != nil {
				return x.fail(ctx, session, ctxErr)
			}
			return x.fail(ctx, session, goerr.Wrap(ErrAnswerComposition, err.Error()))
		}
		session.finish(StatusAnswered)
		answer = &Answer{
			SessionID:  session.ID,
			Strategy:   strategy.Name(),
			Text:       text,
			Citations:  citationsFrom(aggregator.Items()),
			Confidence: confidence(aggregator),
			Duration:   time.Since(started),
		}
	} else {
		session.finish(StatusFallback)
		answer = &Answer{
			SessionID:      session.ID,
			Strategy:       strategy.Name(),
			Text:           fallbackNarrative(query, aggregator.Items()),
			Citations:      citationsFrom(aggregator.Items()),
			Confidence:     0.2,
			Fallback:       true,
			FallbackReason: "insufficient evidence within step budget",
			Duration:       time.Since(started),
		}
	}

	if err := x.recorder.Finalize(ctx, session, answer); err != nil {
		LoggerFromContext(ctx).Warn("failed to finalize session", "error", err)
	}

	logger.Info("session finished",
		"status", session.Status,
		"steps", len(session.Steps),
		"fallback", answer.Fallback,
		"duration", answer.Duration,
	)
	return answer, nil
}

func (x *Engine) record(ctx context.Context, session *Session, step Step) {
	recorded := session.addStep(step)
	if err := x.recorder.Record(ctx, session.ID, recorded); err != nil {
		LoggerFromContext(ctx).Warn("failed to record step",
			"seq", recorded.Seq, "kind", recorded.Kind, "error", err)
	}
}

func (x *Engine) fail(ctx context.Context, session *Session, err error) (*Answer, error) {
	session.finish(StatusFailed)
	if finErr := x.recorder.Finalize(ctx, session, nil); finErr != nil {
		LoggerFromContext(ctx).Warn("failed to finalize session", "error", finErr)
	}
	LoggerFromContext(ctx).Error("session failed", "error", err)
	return nil, goerr.Wrap(err, "session failed", goerr.V("session_id", session.ID))
}

func sessionErr(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return nil
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return goerr.Wrap(ErrSessionTimeout, err.Error())
	case errors.Is(ctx.Err(), context.Canceled):
		return goerr.Wrap(ErrSessionCancelled, err.Error())
	}
	return err
}

func confidence(agg *Aggregator) float64 {
	best, ok := agg.Best()
	if !ok {
		return 0
	}
	return best.Score
}
