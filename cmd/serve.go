package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/app"
	httpSrv "github.com/jmehdipour/judgment-gateway/internal/http"
	"github.com/jmehdipour/judgment-gateway/internal/metrics"
	"github.com/jmehdipour/judgment-gateway/internal/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		metrics.MustRegister(prometheus.DefaultRegisterer)

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

		var chDB *sqlx.DB
		if cfg.Export.AuditLog {
			if chDB, err = app.OpenClickHouse(cfg); err != nil {
				return err
			}
			defer func() { _ = chDB.Close() }()
		}

		ingestSvc, err := app.NewIngest(cfg, mysqlDB, redisClient, log)
		if err != nil {
			return err
		}
		exportSvc, err := app.NewExport(cfg, mysqlDB, chDB, log)
		if err != nil {
			return err
		}

		deps := httpSrv.Deps{
			Ingest:  ingestSvc,
			Export:  exportSvc,
			Sweeper: app.NewSweeper(cfg, mysqlDB, log),
			Redis:   redisClient,
			Log:     log,
		}
		if chDB != nil {
			deps.ExportLog = repository.NewCHExportLogRepository(chDB)
		}
		server := httpSrv.NewServer(cfg, deps)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}
