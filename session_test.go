package resolva_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resolva"
)

func sessionWithSteps(status resolva.Status, steps ...resolva.Step) *resolva.Session {
	return &resolva.Session{
		ID:       "test-session",
		Query:    resolva.ParseQuery("order-service down"),
		Strategy: "rules",
		Status:   status,
		Steps:    steps,
	}
}

func TestSessionValidate(t *testing.T) {
	t.Run("valid alternation", func(t *testing.T) {
		s := sessionWithSteps(resolva.StatusAnswered,
			resolva.Step{Seq: 1, Kind: resolva.StepThink},
			resolva.Step{Seq: 2, Kind: resolva.StepAct, Tool: "search_incidents"},
			resolva.Step{Seq: 3, Kind: resolva.StepObserve, Tool: "search_incidents"},
			resolva.Step{Seq: 4, Kind: resolva.StepThink},
		)
		gt.NoError(t, s.Validate())
	})

	t.Run("gap in sequence", func(t *testing.T) {
		s := sessionWithSteps(resolva.StatusAnswered,
			resolva.Step{Seq: 1, Kind: resolva.StepThink},
			resolva.Step{Seq: 3, Kind: resolva.StepThink},
		)
		err := s.Validate()
		gt.Error(t, err)
		gt.True(t, errors.Is(err, resolva.ErrInvalidStepOrder))
	})

	t.Run("act without observe", func(t *testing.T) {
		s := sessionWithSteps(resolva.StatusAnswered,
			resolva.Step{Seq: 1, Kind: resolva.StepThink},
			resolva.Step{Seq: 2, Kind: resolva.StepAct, Tool: "search_incidents"},
			resolva.Step{Seq: 3, Kind: resolva.StepThink},
		)
		err := s.Validate()
		gt.Error(t, err)
		gt.True(t, errors.Is(err, resolva.ErrDanglingAct))
	})

	t.Run("trailing act allowed on failed session", func(t *testing.T) {
		s := sessionWithSteps(resolva.StatusFailed,
			resolva.Step{Seq: 1, Kind: resolva.StepThink},
			resolva.Step{Seq: 2, Kind: resolva.StepAct, Tool: "search_incidents"},
		)
		gt.NoError(t, s.Validate())
	})

	t.Run("trailing act rejected on answered session", func(t *testing.T) {
		s := sessionWithSteps(resolva.StatusAnswered,
			resolva.Step{Seq: 1, Kind: resolva.StepThink},
			resolva.Step{Seq: 2, Kind: resolva.StepAct, Tool: "search_incidents"},
		)
		err := s.Validate()
		gt.Error(t, err)
		gt.True(t, errors.Is(err, resolva.ErrDanglingAct))
	})
}

func TestStatusTerminal(t *testing.T) {
	gt.True(t, !resolva.StatusRunning.Terminal())
	gt.True(t, resolva.StatusAnswered.Terminal())
	gt.True(t, resolva.StatusFallback.Terminal())
	gt.True(t, resolva.StatusFailed.Terminal())
}
