package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmehdipour/judgment-gateway/internal/app"
)

var sweepMinAgeDays int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete reported judgments older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		days := cfg.Retention.MinAgeDays
		if cmd.Flags().Changed("min-age-days") {
			days = sweepMinAgeDays
		}

		mysqlDB, err := app.OpenMySQL(cfg)
		if err != nil {
			return err
		}
		defer mysqlDB.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		n, err := app.NewSweeper(cfg, mysqlDB, log).Sweep(ctx, days)
		if err != nil {
			return err
		}
		fmt.Printf(">> %d judgments deleted\n", n)
		return nil
	},
}

func init() {
	sweepCmd.Flags().IntVar(&sweepMinAgeDays, "min-age-days", 0, "minimum age in days of reported records (default: retention.min_age_days)")
}
