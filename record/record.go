// Package record persists resolution sessions. A Recorder accumulates
// steps in memory while a session runs and hands the finished session
// to a Repository when it ends.
package record

import (
	"context"
	"time"

	"github.com/m-mizutani/resolva"
)

// Record is the persisted form of a finished session. Answer is nil
// when the session failed before producing one.
type Record struct {
	Session *resolva.Session `json:"session"`
	Answer  *resolva.Answer  `json:"answer,omitempty"`
	SavedAt time.Time        `json:"saved_at"`
}

// Repository persists finished session records.
type Repository interface {
	Save(ctx context.Context, record *Record) error
}
