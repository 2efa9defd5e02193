package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/app"
	"github.com/jmehdipour/judgment-gateway/internal/metrics"
	"github.com/jmehdipour/judgment-gateway/internal/schedule"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the periodic export and retention jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
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

		var chDB *sqlx.DB
		if cfg.Export.AuditLog {
			if chDB, err = app.OpenClickHouse(cfg); err != nil {
				return err
			}
			defer chDB.Close()
		}

		exportSvc, err := app.NewExport(cfg, mysqlDB, chDB, log)
		if err != nil {
			return err
		}

		loc := cfg.Export.Location()
		sched, err := schedule.New(loc, log)
		if err != nil {
			return err
		}
		if _, err := sched.AddExport(cfg.Export.Cron, exportSvc, cfg.Export.TestMode); err != nil {
			return err
		}
		if cfg.Retention.Enabled {
			if _, err := sched.AddRetention(cfg.Retention.Cron, app.NewSweeper(cfg, mysqlDB, log), cfg.Retention.MinAgeDays); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched.Start()
		log.Info("scheduler started",
			zap.String("export_cron", cfg.Export.Cron),
			zap.Bool("test_mode", cfg.Export.TestMode),
			zap.Bool("retention", cfg.Retention.Enabled),
			zap.String("tz", loc.String()),
		)

		<-ctx.Done()
		log.Info("scheduler stopping")
		return sched.Shutdown()
	},
}
