package record_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/resolva"
	"github.com/m-mizutani/resolva/record"
)

func testSession(id string) *resolva.Session {
	return &resolva.Session{
		ID:       id,
		Query:    resolva.ParseQuery("order-service returning 500s"),
		Strategy: "rules",
		Status:   resolva.StatusAnswered,
		Steps: []resolva.Step{
			{Seq: 1, Kind: resolva.StepThink, Note: "search first", Timestamp: time.Now()},
		},
		StartedAt: time.Now(),
		EndedAt:   time.Now(),
	}
}

func TestRecorderOrderedSteps(t *testing.T) {
	rec := record.New()
	ctx := context.Background()

	gt.NoError(t, rec.Record(ctx, "s1", resolva.Step{Seq: 1, Kind: resolva.StepThink}))
	gt.NoError(t, rec.Record(ctx, "s1", resolva.Step{Seq: 2, Kind: resolva.StepAct}))
	gt.NoError(t, rec.Record(ctx, "s1", resolva.Step{Seq: 3, Kind: resolva.StepObserve}))

	steps := rec.Steps("s1")
	gt.Array(t, steps).Length(3)
	gt.Equal(t, steps[0].Seq, 1)
	gt.Equal(t, steps[2].Kind, resolva.StepObserve)
}

func TestRecorderRejectsOutOfOrder(t *testing.T) {
	rec := record.New()
	ctx := context.Background()

	gt.NoError(t, rec.Record(ctx, "s1", resolva.Step{Seq: 1, Kind: resolva.StepThink}))
	gt.Error(t, rec.Record(ctx, "s1", resolva.Step{Seq: 3, Kind: resolva.StepThink}))
	gt.Error(t, rec.Record(ctx, "s1", resolva.Step{Seq: 1, Kind: resolva.StepThink}))

	gt.Array(t, rec.Steps("s1")).Length(1)
}

func TestRecorderIndependentSessions(t *testing.T) {
	rec := record.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for seq := 1; seq <= 50; seq++ {
				if err := rec.Record(ctx, id, resolva.Step{Seq: seq, Kind: resolva.StepThink}); err != nil {
					t.Error(err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c", "d"} {
		gt.Array(t, rec.Steps(id)).Length(50)
	}
}

func TestRecorderFinalizeOnce(t *testing.T) {
	repo := record.NewMemoryRepository()
	rec := record.New(record.WithRepository(repo))
	ctx := context.Background()

	session := testSession("s1")
	answer := &resolva.Answer{SessionID: "s1", Strategy: "rules", Text: "restart the pool"}

	gt.NoError(t, rec.Finalize(ctx, session, answer))
	gt.Error(t, rec.Finalize(ctx, session, answer))

	gt.Equal(t, repo.Len(), 1)
	stored := repo.Get("s1")
	gt.Value(t, stored).NotNil()
	gt.Equal(t, stored.Answer.Text, "restart the pool")

	// A finalized session accepts no more steps.
	gt.Error(t, rec.Record(ctx, "s1", resolva.Step{Seq: 2, Kind: resolva.StepThink}))
}

func TestRecorderFinalizedLimit(t *testing.T) {
	rec := record.New(record.WithFinalizedLimit(2))
	ctx := context.Background()

	gt.NoError(t, rec.Finalize(ctx, testSession("s1"), nil))
	gt.NoError(t, rec.Finalize(ctx, testSession("s2"), nil))
	gt.NoError(t, rec.Finalize(ctx, testSession("s3"), nil))

	// The two most recent sessions still reject a second finalize.
	gt.Error(t, rec.Finalize(ctx, testSession("s3"), nil))
	gt.Error(t, rec.Finalize(ctx, testSession("s2"), nil))

	// The oldest entry was forgotten, so its ID is usable again.
	gt.NoError(t, rec.Finalize(ctx, testSession("s1"), nil))
}

func TestRecorderFinalizeWithoutAnswer(t *testing.T) {
	repo := record.NewMemoryRepository()
	rec := record.New(record.WithRepository(repo))

	session := testSession("s1")
	session.Status = resolva.StatusFailed

	gt.NoError(t, rec.Finalize(context.Background(), session, nil))
	stored := repo.Get("s1")
	gt.Value(t, stored).NotNil()
	gt.Value(t, stored.Answer).Nil()
	gt.Equal(t, stored.Session.Status, resolva.StatusFailed)
}

func TestFileRepositoryRoundtrip(t *testing.T) {
	dir := t.TempDir()
	repo := record.NewFileRepository(dir)

	session := testSession("0195fe84-2c8e-7000-8000-000000000001")
	answer := &resolva.Answer{
		SessionID: session.ID,
		Strategy:  "rules",
		Text:      "roll back the deploy",
		Citations: []resolva.Citation{{SourceID: "INC-1042", Tool: "search_incidents", Score: 0.91}},
	}

	gt.NoError(t, repo.Save(context.Background(), &record.Record{
		Session: session,
		Answer:  answer,
		SavedAt: time.Now(),
	}))

	data, err := os.ReadFile(filepath.Join(dir, session.ID+".json"))
	gt.NoError(t, err)

	var loaded record.Record
	gt.NoError(t, json.Unmarshal(data, &loaded))
	gt.Equal(t, loaded.Session.ID, session.ID)
	gt.Equal(t, loaded.Answer.Citations[0].SourceID, "INC-1042")
	gt.Equal(t, loaded.Session.Status, resolva.StatusAnswered)
}
