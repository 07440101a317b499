package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/config"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/repository"
)

const (
	ResultBatchSize    = 20
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second

	// Pause after a flush that had to requeue, doubling up to the max while
	// the store keeps failing.
	ResultRetryBackoff    = 500 * time.Millisecond
	ResultMaxRetryBackoff = 30 * time.Second
)

// ResultWorker drains the result queue into a ResultStore.
type ResultWorker struct {
	store repository.ResultStore
	rdb   *redis.Client
	queue string
	log   zerolog.Logger
	done  chan struct{}

	batchSize    int
	batchTimeout time.Duration
	pollTimeout  time.Duration
	minBackoff   time.Duration
	maxBackoff   time.Duration
	backoff      time.Duration
}

func NewResultWorker(store repository.ResultStore, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		store: store,
		rdb:   rdb,
		queue: config.WorkerKey.PersistResultsQueue,
		log:   log.With().Str("component", "result_worker").Logger(),
		done:  make(chan struct{}),

		batchSize:    ResultBatchSize,
		batchTimeout: ResultBatchTimeout,
		pollTimeout:  ResultPollTimeout,
		minBackoff:   ResultRetryBackoff,
		maxBackoff:   ResultMaxRetryBackoff,
	}
}

// Done is closed once Start has flushed its last batch and returned.
func (w *ResultWorker) Done() <-chan struct{} {
	return w.done
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	defer close(w.done)
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.Result, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {

			requeued := w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()

			w.backoff = w.nextBackoff(requeued)
			if w.backoff > 0 {
				w.log.Warn().Int("requeued", requeued).Dur("backoff", w.backoff).Msg("result store failing, pausing")
				select {
				case <-ctx.Done():
				case <-time.After(w.backoff):
				}
			}
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, w.pollTimeout, w.queue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var r model.Result
			if err := json.Unmarshal([]byte(item[1]), &r); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &r)
		}
	}
}

// ----------------------------------------------------------------
// Batch save with per-item fallback
// ----------------------------------------------------------------

// flushSafe saves batch and returns how many results went back on the queue.
func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.Result) int {
	if len(batch) == 0 {
		return 0
	}

	if err := w.store.SaveResults(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("batch", len(batch)).Msg("batch result save failed, using fallback")

		requeued := 0
		for _, r := range batch {
			if _, err := w.store.SaveResult(ctx, r); err != nil {
				w.log.Error().Err(err).Str("result_id", r.ID).Msg("SaveResult failed, requeueing")
				raw, _ := json.Marshal(r)
				if err := w.rdb.RPush(ctx, w.queue, raw).Err(); err != nil {
					w.log.Error().Err(err).Str("result_id", r.ID).Msg("requeue failed, result lost")
					continue
				}
				requeued++
			}
		}
		return requeued
	}

	w.log.Debug().Int("batch", len(batch)).Msg("results persisted")
	return 0
}

func (w *ResultWorker) nextBackoff(requeued int) time.Duration {
	if requeued == 0 {
		return 0
	}
	if w.backoff == 0 {
		return w.minBackoff
	}
	return min(w.backoff*2, w.maxBackoff)
}
