package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/apperr"
	"github.com/jmehdipour/judgment-gateway/internal/kafka"
	"github.com/jmehdipour/judgment-gateway/internal/logger"
	"github.com/jmehdipour/judgment-gateway/internal/model"
	"github.com/jmehdipour/judgment-gateway/internal/service/ingest"
)

const (
	HeaderErrorCode    = "jgw-error-code"
	HeaderErrorMessage = "jgw-error"
)

type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

type DeadLetter interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

type Ingester interface {
	Process(ctx context.Context, ev model.InboundEvent) (ingest.Outcome, error)
}

// IngestKafka:
// - fetches judgment events from Kafka, one at a time to keep partition order,
// - registers them through the ingest service,
// - dead-letters events that can never succeed and retries transient failures.
//
// Offsets are committed only once an event is stored, recognised as a
// duplicate, or dead-lettered, so delivery is at-least-once and relies on
// the ingest service's idempotency.
type IngestKafka struct {
	// Dependencies
	Source     Source
	DeadLetter DeadLetter // optional: rejected events are logged and skipped without it
	Ingest     Ingester
	Log        *zap.Logger

	// Behavior
	MinBackoff time.Duration // first retry delay for transient failures
	MaxBackoff time.Duration // retry delay cap
}

// NewIngestKafka builds a worker with sane defaults.
func NewIngestKafka(src Source, dlq DeadLetter, svc Ingester, log *zap.Logger) *IngestKafka {
	return &IngestKafka{
		Source:     src,
		DeadLetter: dlq,
		Ingest:     svc,
		Log:        logger.OrNop(log),
		MinBackoff: 200 * time.Millisecond,
		MaxBackoff: 30 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (w *IngestKafka) Run(ctx context.Context) error {
	if w.MinBackoff <= 0 {
		w.MinBackoff = 200 * time.Millisecond
	}
	if w.MaxBackoff < w.MinBackoff {
		w.MaxBackoff = w.MinBackoff
	}

	for {
		m, err := w.Source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.Log.Warn("kafka fetch failed", zap.Error(err))
			if !sleep(ctx, w.MinBackoff) {
				return nil
			}
			continue
		}

		if err := w.handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// handle processes m until it is stored, rejected or ctx ends, then commits.
func (w *IngestKafka) handle(ctx context.Context, m kafka.Message) error {
	log := w.Log.With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))

	var ev model.InboundEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		// poison → dead-letter, commit, skip
		if err := w.reject(ctx, m, apperr.ErrInvalidEvent.Wrap(err), log); err != nil {
			return err
		}
		return w.commit(ctx, m, log)
	}

	backoff := w.MinBackoff
	for {
		_, err := w.Ingest.Process(ctx, ev)
		if err == nil {
			return w.commit(ctx, m, log)
		}

		if apperr.KindOf(err) != apperr.KindInternal {
			if err := w.reject(ctx, m, err, log); err != nil {
				return err
			}
			return w.commit(ctx, m, log)
		}

		log.Warn("ingest failed, retrying", zap.Duration("backoff", backoff), zap.Error(err))
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = min(backoff*2, w.MaxBackoff)
	}
}

func (w *IngestKafka) reject(ctx context.Context, m kafka.Message, cause error, log *zap.Logger) error {
	log.Warn("judgment event rejected", zap.String("code", apperr.CodeOf(cause)), zap.Error(cause))
	if w.DeadLetter == nil {
		return nil
	}

	dl := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(append([]kafka.Header(nil), m.Headers...),
			kafka.Header{Key: HeaderErrorCode, Value: []byte(apperr.CodeOf(cause))},
			kafka.Header{Key: HeaderErrorMessage, Value: []byte(cause.Error())},
		),
	}
	if err := w.DeadLetter.Publish(ctx, dl); err != nil {
		return fmt.Errorf("dead-letter offset %d: %w", m.Offset, err)
	}
	return nil
}

func (w *IngestKafka) commit(ctx context.Context, m kafka.Message, log *zap.Logger) error {
	if err := w.Source.Commit(ctx, m); err != nil {
		// The event is redelivered after a restart; ingest is idempotent.
		log.Error("kafka commit failed", zap.Error(err))
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
