// Package rules provides the deterministic rule-based strategy. It
// walks a fixed diagnostic order: search related incidents, analyze the
// trace when the query names one, widen to past resolutions while the
// evidence is weak, check service health, and request a resolution
// suggestion once the evidence is sufficient.
package rules

import (
	"context"

	"github.com/m-mizutani/resolva"
)

// Strategy is the rule-based strategy.
// Note: This implementation should be kept in sync with the built-in
// default strategy of the resolva package.
type Strategy struct{}

var _ resolva.Strategy = (*Strategy)(nil)

// New creates a new rule-based strategy.
func New() *Strategy {
	return &Strategy{}
}

// Name returns "rules".
func (s *Strategy) Name() string {
	return "rules"
}

// Next applies the fixed rule order to the current turn.
func (s *Strategy) Next(_ context.Context, turn *resolva.Turn) (*resolva.Decision, error) {
	return resolva.NextByRules(turn), nil
}
