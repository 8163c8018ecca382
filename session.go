package resolva

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusRunning  Status = "running"
	StatusAnswered Status = "answered"
	StatusFallback Status = "fallback"
	StatusFailed   Status = "failed"
)

// Terminal reports whether the status is one of the terminal states.
func (s Status) Terminal() bool {
	return s == StatusAnswered || s == StatusFallback || s == StatusFailed
}

// StepKind is the type of a recorded loop step.
type StepKind string

const (
	StepThink   StepKind = "think"
	StepAct     StepKind = "act"
	StepObserve StepKind = "observe"
)

// Step is one recorded unit of the reasoning loop. Steps are append-only:
// once added to a Session they are never mutated.
type Step struct {
	Seq       int            `json:"seq"`
	Kind      StepKind       `json:"kind"`
	Tool      string         `json:"tool,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Failure   *ToolFailure   `json:"failure,omitempty"`
	Note      string         `json:"note,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Session is one end-to-end run of the reasoning loop for a single query.
// It is owned exclusively by the loop controller for its lifetime and is
// handed to the recorder once a terminal status is reached.
type Session struct {
	ID        string    `json:"id"`
	Query     Query     `json:"query"`
	Strategy  string    `json:"strategy"`
	Status    Status    `json:"status"`
	Steps     []Step    `json:"steps"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
}

// NewSession creates a running session for the given query and strategy.
func NewSession(q Query, strategy string) *Session {
	return &Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Query:     q,
		Strategy:  strategy,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
}

// addStep appends a step with the next contiguous sequence number and
// returns a copy of what was appended.
func (s *Session) addStep(step Step) Step {
	step.Seq = len(s.Steps) + 1
	step.Timestamp = time.Now()
	s.Steps = append(s.Steps, step)
	return step
}

// ActCount returns the number of act steps recorded so far.
func (s *Session) ActCount() int {
	n := 0
	for _, step := range s.Steps {
		if step.Kind == StepAct {
			n++
		}
	}
	return n
}

// finish marks the session with its single terminal status.
func (s *Session) finish(status Status) {
	s.Status = status
	s.EndedAt = time.Now()
}

// Validate checks the structural invariants of a session trace: sequence
// numbers contiguous from 1, and every act step immediately followed by
// exactly one observe step unless the session failed mid-call.
func (s *Session) Validate() error {
	for i, step := range s.Steps {
		if step.Seq != i+1 {
			return ErrInvalidStepOrder
		}
		if step.Kind == StepAct {
			if i+1 >= len(s.Steps) {
				if s.Status != StatusFailed {
					return ErrDanglingAct
				}
				continue
			}
			if s.Steps[i+1].Kind != StepObserve {
				return ErrDanglingAct
			}
		}
	}
	return nil
}
