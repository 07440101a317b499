package bank

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/normalizer"
)

type memoryCache struct {
	data map[string][]byte
	sets int
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.data[key] = data
	m.sets++
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newLoader(t *testing.T, cache Cache) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "polity.json", `{"questions":[{"question":"Article 21?","options":["Life","Speech"],"answer":"A"}]}`)
	writeFile(t, dir, "quant.yaml", "- q: \"2+2?\"\n  options: [\"3\", \"4\"]\n  answer: 1\n  tags: [math]\n")
	writeFile(t, dir, "broken.json", `{"questions":[{"question":"no options"}]}`)
	files := map[string]string{"Polity": "polity.json", "quant": "quant.yaml", "broken": "broken.json", "missing": "missing.json"}
	norm := normalizer.New(zerolog.Nop())
	return NewLoader(dir, files, []string{"quant"}, norm, cache, time.Minute, zerolog.Nop()), dir
}

func TestLoaderLoad(t *testing.T) {
	l, _ := newLoader(t, nil)
	ctx := context.Background()

	qs, err := l.Load(ctx, " POLITY ")
	if err != nil {
		t.Fatalf("load polity: %v", err)
	}
	if len(qs) != 1 || qs[0].CorrectIndex != 0 {
		t.Fatalf("unexpected polity questions %+v", qs)
	}

	qs, err = l.Load(ctx, "quant")
	if err != nil {
		t.Fatalf("load quant: %v", err)
	}
	if len(qs) != 1 || qs[0].CorrectIndex != 1 || !qs[0].HasTag("math") {
		t.Fatalf("unexpected quant questions %+v", qs)
	}
}

func TestLoaderErrors(t *testing.T) {
	l, _ := newLoader(t, nil)
	ctx := context.Background()

	if _, err := l.Load(ctx, "astronomy"); !errors.Is(err, ErrUnknownSubject) {
		t.Fatalf("expected ErrUnknownSubject, got %v", err)
	}
	if _, err := l.Load(ctx, "broken"); !errors.Is(err, ErrNoValidQuestions) {
		t.Fatalf("expected ErrNoValidQuestions, got %v", err)
	}
	if _, err := l.Load(ctx, "missing"); !errors.Is(err, ErrLoadFailed) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a wrapped not-exist error, got %v", err)
	}
}

func TestLoaderUsesCache(t *testing.T) {
	cache := &memoryCache{data: map[string][]byte{}}
	l, dir := newLoader(t, cache)
	ctx := context.Background()

	if _, err := l.Load(ctx, "polity"); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "polity.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := l.Load(ctx, "polity"); err != nil {
		t.Fatalf("cached load should not touch disk: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}

	if err := l.Invalidate(ctx, "polity"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := l.Load(ctx, "polity"); err == nil {
		t.Fatalf("expected disk read after invalidation to fail")
	}
}

func TestLoaderSubjects(t *testing.T) {
	l, _ := newLoader(t, nil)
	subjects := l.Subjects()
	if len(subjects) != 4 {
		t.Fatalf("expected 4 subjects, got %d", len(subjects))
	}
	if subjects[0].ID != "broken" || subjects[2].ID != "polity" {
		t.Fatalf("subjects not sorted: %+v", subjects)
	}
	if !subjects[3].CSAT || subjects[2].CSAT {
		t.Fatalf("unexpected csat flags: %+v", subjects)
	}
}
