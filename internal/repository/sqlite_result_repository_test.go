package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/database"
	"github.com/stemsi/exstem-prep/internal/model"
)

func newSQLiteStore(t *testing.T) *SQLiteResultRepository {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "results.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := NewSQLiteResultRepository(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func missedQuestion(id string, selected int) model.MissedQuestion {
	note := "expert"
	return model.MissedQuestion{
		Question: model.Question{
			ID:           id,
			Text:         "Question " + id,
			Options:      []string{"a", "b"},
			CorrectIndex: 0,
			Topic:        "Polity",
			Difficulty:   "Hard",
			Tags:         []string{"constitution"},
			Explanation:  model.Explanation{Core: "core", ExpertNote: &note},
		},
		SelectedIndex: selected,
	}
}

func sampleResult(id, subject string, createdAt int64, missed ...model.MissedQuestion) *model.Result {
	return &model.Result{
		ID:                         id,
		SubjectID:                  subject,
		Mode:                       model.ModeTest,
		Score:                      1.34,
		TotalPossibleMarks:         6,
		CorrectCount:               1,
		WrongCount:                 len(missed),
		SkippedCount:               1,
		TotalQuestions:             2 + len(missed),
		AccuracyPercent:            50,
		TotalActiveDurationSeconds: 12.5,
		MissedQuestions:            missed,
		CreatedAtEpochMillis:       createdAt,
	}
}

func TestSQLiteSaveAndGetResult(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	res := sampleResult("", "polity", 1000, missedQuestion("q1", 1))
	id, err := store.SaveResult(ctx, res)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" || id != res.ID {
		t.Fatalf("expected generated id to be returned, got %q", id)
	}

	got, err := store.GetResult(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 1.34 || got.Mode != model.ModeTest || got.TotalActiveDurationSeconds != 12.5 {
		t.Fatalf("unexpected result %+v", got)
	}
	if len(got.MissedQuestions) != 1 || got.MissedQuestions[0].Question.Explanation.ExpertNote == nil {
		t.Fatalf("missed questions not round-tripped: %+v", got.MissedQuestions)
	}

	if _, err := store.GetResult(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteSaveIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	res := sampleResult("r1", "polity", 1000, missedQuestion("q1", 1))
	for i := 0; i < 3; i++ {
		if _, err := store.SaveResult(ctx, res); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	_, total, err := store.ListResults(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected one stored result, got %d", total)
	}
	items, err := store.ListMissedQuestions(ctx, "polity", 10)
	if err != nil {
		t.Fatalf("list missed: %v", err)
	}
	if len(items) != 1 || items[0].MissCount != 1 {
		t.Fatalf("retried save must not bump miss count: %+v", items)
	}
}

func TestSQLiteMissedQuestionsUpsert(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	if err := store.SaveResults(ctx, []*model.Result{
		sampleResult("r1", "polity", 1000, missedQuestion("q1", 1)),
		sampleResult("r2", "polity", 2000, missedQuestion("q1", 1), missedQuestion("q2", 1)),
		sampleResult("r3", "history", 3000, missedQuestion("h1", 1)),
	}); err != nil {
		t.Fatalf("save batch: %v", err)
	}

	items, err := store.ListMissedQuestions(ctx, "polity", 10)
	if err != nil {
		t.Fatalf("list missed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 polity revision items, got %d", len(items))
	}
	counts := map[string]int{}
	for _, it := range items {
		counts[it.Question.ID] = it.MissCount
	}
	if counts["q1"] != 2 || counts["q2"] != 1 {
		t.Fatalf("unexpected miss counts %v", counts)
	}

	if err := store.SaveMissedQuestions(ctx, "history", []model.MissedQuestion{missedQuestion("h1", 0)}, 4000); err != nil {
		t.Fatalf("save missed: %v", err)
	}
	all, err := store.ListMissedQuestions(ctx, "", 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 || all[0].Question.ID != "h1" || all[0].MissCount != 2 || all[0].SelectedIndex != 0 {
		t.Fatalf("expected h1 most recent with two misses, got %+v", all)
	}

	if err := store.DeleteMissedQuestion(ctx, "q1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteMissedQuestion(ctx, "q1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSQLiteListResultsPaging(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	for i, subject := range []string{"polity", "polity", "quant"} {
		res := sampleResult("", subject, int64(1000*(i+1)))
		if _, err := store.SaveResult(ctx, res); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	page, total, err := store.ListResults(ctx, "polity", 1, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(page) != 1 || page[0].CreatedAtEpochMillis != 2000 {
		t.Fatalf("expected newest polity result first, got total=%d %+v", total, page)
	}

	page, total, err = store.ListResults(ctx, "", 10, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Fatalf("unexpected offset page total=%d len=%d", total, len(page))
	}
}
