package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/repository"
)

// ResultSink hands a finished result to persistence and returns its id.
type ResultSink interface {
	Deliver(ctx context.Context, r *model.Result) (string, error)
}

// DirectSink saves synchronously into a ResultStore.
type DirectSink struct {
	store repository.ResultStore
}

func NewDirectSink(store repository.ResultStore) *DirectSink {
	return &DirectSink{store: store}
}

func (s *DirectSink) Deliver(ctx context.Context, r *model.Result) (string, error) {
	return s.store.SaveResult(ctx, r)
}

// QueueSink pushes results onto the redis queue drained by worker.ResultWorker.
// The result must already carry its id.
type QueueSink struct {
	rdb   *redis.Client
	queue string
}

func NewQueueSink(rdb *redis.Client) *QueueSink {
	return &QueueSink{rdb: rdb, queue: config.WorkerKey.PersistResultsQueue}
}

func (s *QueueSink) Deliver(ctx context.Context, r *model.Result) (string, error) {
	if r.ID == "" {
		return "", fmt.Errorf("queue result: missing id")
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	if err := s.rdb.RPush(ctx, s.queue, raw).Err(); err != nil {
		return "", fmt.Errorf("queue result: %w", err)
	}
	return r.ID, nil
}
