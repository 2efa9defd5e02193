package worker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/app"
	"github.com/jmehdipour/judgment-gateway/internal/kafka"
	"github.com/jmehdipour/judgment-gateway/internal/worker"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Consume judgment events from Kafka and register them",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) config and logger
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		// 2) stores
		mysqlDB, err := app.OpenMySQL(cfg)
		if err != nil {
			return err
		}
		defer mysqlDB.Close()

		redisClient, err := app.OpenRedis(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()

		svc, err := app.NewIngest(cfg, mysqlDB, redisClient, log)
		if err != nil {
			return err
		}

		// 3) kafka
		consumer, err := kafka.NewConsumer(cfg.Kafka)
		if err != nil {
			return err
		}
		defer func() { _ = consumer.Close() }()

		var dlq worker.DeadLetter
		if cfg.Kafka.DeadLetterTopic != "" {
			producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic)
			defer func() { _ = producer.Close() }()
			dlq = producer
		}

		// 4) run until signalled
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("ingest worker started",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
			zap.String("group", cfg.Kafka.GroupID),
		)
		if err := worker.NewIngestKafka(consumer, dlq, svc, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("ingest worker stopped", zap.Int64("lag", consumer.Lag()))
		return nil
	},
}
