package resolva

import "time"

// Citation references an evidence source backing an answer.
type Citation struct {
	SourceID string  `json:"source_id"`
	Tool     string  `json:"tool"`
	Score    float64 `json:"score"`
}

// Answer is the terminal output of a session: a grounded resolution
// narrative, or a fallback explicitly marked low-confidence.
type Answer struct {
	SessionID  string        `json:"session_id"`
	Strategy   string        `json:"strategy"`
	Text       string        `json:"text"`
	Citations  []Citation    `json:"citations,omitempty"`
	Confidence float64       `json:"confidence"`
	Fallback   bool          `json:"fallback"`

	// FallbackReason explains why the session fell back, empty otherwise.
	FallbackReason string        `json:"fallback_reason,omitempty"`
	Duration       time.Duration `json:"duration"`
}

func citationsFrom(items []Evidence) []Citation {
	if len(items) == 0 {
		return nil
	}
	out := make([]Citation, 0, len(items))
	for _, ev := range items {
		out = append(out, Citation{SourceID: ev.SourceID, Tool: ev.Tool, Score: ev.Score})
	}
	return out
}
