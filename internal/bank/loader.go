// Package bank resolves subject ids to question bank files and loads them
// through the normalizer.
package bank

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/normalizer"
)

var (
	ErrUnknownSubject   = errors.New("bank: no bank configured for subject")
	ErrNoValidQuestions = errors.New("bank: bank has no valid questions")
	ErrLoadFailed       = errors.New("bank: bank file could not be read")
)

// Loader reads subject banks from a directory.
type Loader struct {
	dir   string
	files map[string]string
	csat  map[string]bool
	norm  *normalizer.Normalizer
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewLoader builds a loader over files (subject id to file name, relative to
// dir). cache may be nil.
func NewLoader(dir string, files map[string]string, csatSubjects []string, norm *normalizer.Normalizer, cache Cache, ttl time.Duration, log zerolog.Logger) *Loader {
	csat := make(map[string]bool, len(csatSubjects))
	for _, id := range csatSubjects {
		csat[normalizeID(id)] = true
	}
	normalized := make(map[string]string, len(files))
	for id, file := range files {
		normalized[normalizeID(id)] = file
	}
	return &Loader{
		dir:   dir,
		files: normalized,
		csat:  csat,
		norm:  norm,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "bank_loader").Logger(),
	}
}

// Subjects lists configured subjects ordered by id.
func (l *Loader) Subjects() []model.Subject {
	out := make([]model.Subject, 0, len(l.files))
	for id, file := range l.files {
		out = append(out, model.Subject{ID: id, FileName: file, CSAT: l.csat[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Load returns the normalized questions of subjectID. It fails with
// ErrUnknownSubject or ErrNoValidQuestions; a session must not start on
// either.
func (l *Loader) Load(ctx context.Context, subjectID string) ([]model.Question, error) {
	id := normalizeID(subjectID)
	file, ok := l.files[id]
	if !ok {
		return nil, ErrUnknownSubject
	}

	data, err := l.payload(ctx, id, file)
	if err != nil {
		return nil, err
	}

	var questions []model.Question
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		questions = l.norm.NormalizeYAML(data)
	default:
		questions = l.norm.NormalizeJSON(data)
	}
	if len(questions) == 0 {
		l.log.Warn().Str("subject_id", id).Str("file", file).Msg("bank produced no valid questions")
		return nil, ErrNoValidQuestions
	}

	l.log.Debug().Str("subject_id", id).Int("questions", len(questions)).Msg("bank loaded")
	return questions, nil
}

// Invalidate drops the cached payload of subjectID.
func (l *Loader) Invalidate(ctx context.Context, subjectID string) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Delete(ctx, config.CacheKey.BankPayloadKey(normalizeID(subjectID)))
}

func (l *Loader) payload(ctx context.Context, id, file string) ([]byte, error) {
	key := config.CacheKey.BankPayloadKey(id)
	if l.cache != nil {
		data, hit, err := l.cache.Get(ctx, key)
		if err != nil {
			l.log.Warn().Err(err).Str("subject_id", id).Msg("bank cache read failed, reading from disk")
		} else if hit {
			return data, nil
		}
	}

	data, err := os.ReadFile(filepath.Join(l.dir, file))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, file, err)
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, key, data, l.ttl); err != nil {
			l.log.Warn().Err(err).Str("subject_id", id).Msg("bank cache write failed")
		}
	}
	return data, nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
