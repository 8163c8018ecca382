package resolva

import (
	"sort"
)

// Evidence is a scored, deduplicated piece of retrieved information backing
// an answer.
type Evidence struct {
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
	Excerpt  string  `json:"excerpt,omitempty"`
	Tool     string  `json:"tool"`
}

// Aggregator folds tool observations into a ranked evidence set and decides
// when the set is sufficient to compose a grounded answer. One Aggregator
// serves one session; it is not safe for concurrent use.
type Aggregator struct {
	limit          int
	scoreThreshold float64
	meanThreshold  float64
	topK           int

	items []Evidence
	index map[string]int
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithEvidenceCap bounds the ranked evidence list.
func WithEvidenceCap(n int) AggregatorOption {
	return func(a *Aggregator) {
		a.limit = n
	}
}

// WithSufficiencyThreshold sets the single-item score threshold.
func WithSufficiencyThreshold(v float64) AggregatorOption {
	return func(a *Aggregator) {
		a.scoreThreshold = v
	}
}

// WithMeanThreshold sets the secondary top-k mean bound.
func WithMeanThreshold(v float64) AggregatorOption {
	return func(a *Aggregator) {
		a.meanThreshold = v
	}
}

// WithTopK sets how many items feed the mean bound.
func WithTopK(k int) AggregatorOption {
	return func(a *Aggregator) {
		a.topK = k
	}
}

// NewAggregator creates an empty evidence set.
func NewAggregator(options ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		limit:          DefaultEvidenceCap,
		scoreThreshold: DefaultScoreThreshold,
		meanThreshold:  DefaultMeanThreshold,
		topK:           DefaultTopK,
		index:          map[string]int{},
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Add folds one evidence item into the set. Duplicate sources keep the
// highest score. Scores are clamped to [0,1]. Returns true if the set
// changed.
func (a *Aggregator) Add(ev Evidence) bool {
	if ev.SourceID == "" {
		return false
	}
	ev.Score = clamp01(ev.Score)

	if i, ok := a.index[ev.SourceID]; ok {
		if ev.Score <= a.items[i].Score {
			return false
		}
		a.items[i] = ev
		a.rerank()
		a.rebuildIndex()
		return true
	}

	a.items = append(a.items, ev)
	a.rerank()

	if len(a.items) > a.limit {
		dropped := a.items[len(a.items)-1]
		a.items = a.items[:len(a.items)-1]
		if dropped.SourceID == ev.SourceID {
			a.rebuildIndex()
			return false
		}
	}
	a.rebuildIndex()
	return true
}

// AddObservation extracts evidence from a tool result and folds it in,
// returning the number of items that changed the set.
func (a *Aggregator) AddObservation(tool string, result map[string]any) int {
	added := 0
	for _, ev := range ExtractEvidence(tool, result) {
		if a.Add(ev) {
			added++
		}
	}
	return added
}

// Items returns the ranked evidence list, best first.
func (a *Aggregator) Items() []Evidence {
	out := make([]Evidence, len(a.items))
	copy(out, a.items)
	return out
}

// Best returns the top-ranked evidence item.
func (a *Aggregator) Best() (Evidence, bool) {
	if len(a.items) == 0 {
		return Evidence{}, false
	}
	return a.items[0], true
}

// Len returns the number of distinct evidence sources.
func (a *Aggregator) Len() int {
	return len(a.items)
}

// Sufficient is the loop's termination signal: true when the best item
// exceeds the score threshold, or the mean of the top-k items exceeds the
// secondary bound.
func (a *Aggregator) Sufficient() bool {
	if len(a.items) == 0 {
		return false
	}
	if a.items[0].Score > a.scoreThreshold {
		return true
	}

	// The mean check needs a full top-k: a single mediocre hit must not
	// count as sufficient on its own.
	if len(a.items) < a.topK {
		return false
	}
	sum := 0.0
	for _, ev := range a.items[:a.topK] {
		sum += ev.Score
	}
	return sum/float64(a.topK) > a.meanThreshold
}

// rerank keeps the list ordered by score descending, breaking ties by
// source ID so the ranking is deterministic.
func (a *Aggregator) rerank() {
	sort.SliceStable(a.items, func(i, j int) bool {
		if a.items[i].Score != a.items[j].Score {
			return a.items[i].Score > a.items[j].Score
		}
		return a.items[i].SourceID < a.items[j].SourceID
	})
}

func (a *Aggregator) rebuildIndex() {
	a.index = make(map[string]int, len(a.items))
	for i, ev := range a.items {
		a.index[ev.SourceID] = i
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ExtractEvidence pulls scored sources out of a tool result. Search tools
// return hits under "results" or "resolutions"; each hit carries an ID, a
// score, and an excerpt. Results without scored sources (such as
// suggest_resolution output) yield nothing.
func ExtractEvidence(tool string, result map[string]any) []Evidence {
	if result == nil {
		return nil
	}

	var out []Evidence
	for _, key := range []string{"results", "resolutions"} {
		list, ok := result[key].([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			hit, ok := item.(map[string]any)
			if !ok {
				continue
			}
			ev := Evidence{Tool: tool}
			if id, ok := hit["id"].(string); ok {
				ev.SourceID = id
			}
			if score, ok := toFloat(hit["score"]); ok {
				ev.Score = score
			} else if score, ok := toFloat(hit["similarity"]); ok {
				ev.Score = score
			}
			if text, ok := hit["excerpt"].(string); ok {
				ev.Excerpt = text
			} else if text, ok := hit["content"].(string); ok {
				ev.Excerpt = text
			}
			if ev.SourceID != "" {
				out = append(out, ev)
			}
		}
	}
	return out
}
