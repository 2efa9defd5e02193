package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jmehdipour/judgment-gateway/internal/config"
)

type Message = kafka.Message

type Header = kafka.Header

// Consumer reads judgment events as part of a consumer group. Offsets move
// only through Commit.
type Consumer struct {
	r *kafka.Reader
}

func NewConsumer(cfg config.KafkaConfig) (*Consumer, error) {
	rc, err := readerConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{r: kafka.NewReader(rc)}, nil
}

// readerConfig maps config onto the reader. A new group starts from the
// oldest retained event so nothing published before the first deploy is lost.
func readerConfig(cfg config.KafkaConfig) (kafka.ReaderConfig, error) {
	switch {
	case len(cfg.Brokers) == 0:
		return kafka.ReaderConfig{}, errors.New("kafka: no brokers configured")
	case cfg.Topic == "":
		return kafka.ReaderConfig{}, errors.New("kafka: topic is required")
	case cfg.GroupID == "":
		return kafka.ReaderConfig{}, errors.New("kafka: group_id is required to commit offsets")
	}

	minBytes := cfg.MinBytes
	if minBytes <= 0 {
		minBytes = 1 << 10
	}
	maxBytes := cfg.MaxBytes
	if maxBytes < minBytes {
		maxBytes = 10 << 20
	}

	return kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       minBytes,
		MaxBytes:       maxBytes,
		MaxWait:        50 * time.Millisecond,
		CommitInterval: time.Duration(cfg.CommitInterval) * time.Millisecond, // 0 = synchronous
		StartOffset:    kafka.FirstOffset,
	}, nil
}

func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	return c.r.FetchMessage(ctx)
}

func (c *Consumer) Commit(ctx context.Context, m Message) error {
	return c.r.CommitMessages(ctx, m)
}

// Lag is the number of events behind the partition head, or -1 before the
// first fetch.
func (c *Consumer) Lag() int64 { return c.r.Stats().Lag }

func (c *Consumer) Close() error { return c.r.Close() }
