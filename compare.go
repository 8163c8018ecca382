package resolva

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// StrategyRun is the outcome of one strategy within a comparison.
type StrategyRun struct {
	Strategy string        `json:"strategy"`
	Answer   *Answer       `json:"answer,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Comparison holds the side-by-side results of running the same query
// through multiple strategies.
type Comparison struct {
	Query string        `json:"query"`
	Runs  []StrategyRun `json:"runs"`
}

// Compare runs the query through each named strategy concurrently. Each
// run gets its own session; a failing strategy is reported in its run
// entry and does not abort the others.
func (x *Engine) Compare(ctx context.Context, queryText string, names ...string) (*Comparison, error) {
	if len(names) == 0 {
		return nil, goerr.New("at least one strategy is required")
	}

	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, ok := x.strategies[name]
		if !ok {
			return nil, goerr.Wrap(ErrUnknownStrategy, name)
		}
		strategies = append(strategies, s)
	}

	query := ParseQuery(queryText)
	runs := make([]StrategyRun, len(strategies))

	var wg sync.WaitGroup
	for i, s := range strategies {
		wg.Add(1)
		go func(i int, s Strategy) {
			defer wg.Done()
			started := time.Now()
			answer, err := x.run(ctx, query, s)
			run := StrategyRun{
				Strategy: s.Name(),
				Answer:   answer,
				Duration: time.Since(started),
			}
			if err != nil {
				run.Error = err.Error()
			}
			runs[i] = run
		}(i, s)
	}
	wg.Wait()

	return &Comparison{Query: queryText, Runs: runs}, nil
}
