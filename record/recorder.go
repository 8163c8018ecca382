package record

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva"
)

// defaultFinalizedLimit bounds how many finished session IDs are kept
// for duplicate-finalize detection in a long-lived process.
const defaultFinalizedLimit = 1024

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithRepository sets the repository that finished sessions are saved to.
func WithRepository(repo Repository) Option {
	return func(r *Recorder) {
		r.repo = repo
	}
}

// WithLogger sets the logger for recording anomalies.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithFinalizedLimit overrides how many finished session IDs are kept
// for duplicate-finalize detection. The oldest entries are forgotten
// once the limit is exceeded.
func WithFinalizedLimit(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.finalizedLimit = n
		}
	}
}

// Recorder collects session steps in memory and saves finished sessions
// through the configured Repository. It is safe for concurrent use
// across sessions.
type Recorder struct {
	mu             sync.Mutex
	steps          map[string][]resolva.Step
	finalized      map[string]bool
	finalizedOrder []string
	finalizedLimit int
	repo           Repository
	logger         *slog.Logger
}

var _ resolva.Recorder = (*Recorder)(nil)

// New creates a new Recorder with the given options.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		steps:          map[string][]resolva.Step{},
		finalized:      map[string]bool{},
		finalizedLimit: defaultFinalizedLimit,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends a step to the session's buffer. Steps must arrive in
// sequence order per session; an out-of-order step is rejected.
func (r *Recorder) Record(_ context.Context, sessionID string, step resolva.Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized[sessionID] {
		return goerr.New("session is already finalized", goerr.V("session_id", sessionID))
	}

	buf := r.steps[sessionID]
	if want := len(buf) + 1; step.Seq != want {
		r.logger.Warn("out-of-order step rejected",
			"session_id", sessionID, "seq", step.Seq, "want", want)
		return goerr.New("step sequence is out of order",
			goerr.V("session_id", sessionID),
			goerr.V("seq", step.Seq),
			goerr.V("want", want))
	}

	r.steps[sessionID] = append(buf, step)
	return nil
}

// Finalize saves the finished session and releases its step buffer.
// Finalizing the same session twice is an error while its ID is still
// within the remembered window.
func (r *Recorder) Finalize(ctx context.Context, session *resolva.Session, answer *resolva.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized[session.ID] {
		return goerr.New("session is already finalized", goerr.V("session_id", session.ID))
	}
	r.finalized[session.ID] = true
	r.finalizedOrder = append(r.finalizedOrder, session.ID)
	for len(r.finalizedOrder) > r.finalizedLimit {
		delete(r.finalized, r.finalizedOrder[0])
		r.finalizedOrder = r.finalizedOrder[1:]
	}
	delete(r.steps, session.ID)

	if r.repo == nil {
		return nil
	}
	return r.repo.Save(ctx, &Record{
		Session: session,
		Answer:  answer,
		SavedAt: time.Now(),
	})
}

// Steps returns a copy of the buffered steps for a running session.
func (r *Recorder) Steps(sessionID string) []resolva.Step {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := r.steps[sessionID]
	out := make([]resolva.Step, len(buf))
	copy(out, buf)
	return out
}
