package rules_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resolva"
	"github.com/m-mizutani/resolva/strategy/rules"
)

func TestRulesMatchesBuiltinOrder(t *testing.T) {
	s := rules.New()
	gt.Equal(t, s.Name(), "rules")

	turn := &resolva.Turn{
		Query:  resolva.ParseQuery("payment-api latency spike"),
		Budget: 6,
		Called: map[string]int{},
	}

	d, err := s.Next(context.Background(), turn)
	gt.NoError(t, err)
	gt.Equal(t, d, resolva.NextByRules(turn))
	gt.Equal(t, d.Tool, resolva.ToolSearchIncidents)
}

func TestRulesFinishesWhenNothingLeft(t *testing.T) {
	s := rules.New()
	turn := &resolva.Turn{
		Query:  resolva.ParseQuery("vague report"),
		Budget: 6,
		Called: map[string]int{
			resolva.ToolSearchIncidents:   1,
			resolva.ToolSearchResolutions: 1,
		},
	}

	d, err := s.Next(context.Background(), turn)
	gt.NoError(t, err)
	gt.True(t, d.Finish)
}
