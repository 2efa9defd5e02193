package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/jmehdipour/judgment-gateway/internal/app"
	"github.com/jmehdipour/judgment-gateway/internal/service/export"
)

var (
	exportTestMode bool
	exportAsOf     string
	exportSite     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export pending judgments to the Register once and exit",
	Long: "Exports every pending judgment, grouped per site, and marks it reported.\n" +
		"--as-of re-sends the batch exported at that watermark; --test only stages files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		req := export.Request{TestMode: exportTestMode || cfg.Export.TestMode}
		if exportAsOf != "" {
			t, err := export.ParseAsOf(exportAsOf, cfg.Export.Location())
			if err != nil {
				return err
			}
			req.AsOf = &t
		}
		if exportSite != "" {
			req.SiteID = &exportSite
		}

		mysqlDB, err := app.OpenMySQL(cfg)
		if err != nil {
			return err
		}
		defer mysqlDB.Close()

		var chDB *sqlx.DB
		if cfg.Export.AuditLog && !req.TestMode {
			if chDB, err = app.OpenClickHouse(cfg); err != nil {
				return err
			}
			defer chDB.Close()
		}

		svc, err := app.NewExport(cfg, mysqlDB, chDB, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, runErr := svc.Run(ctx, req)
		printExport(res)
		return runErr
	},
}

func printExport(res export.Result) {
	fmt.Printf(">> run %s watermark %s rerun=%t test=%t\n",
		res.RunID, res.Watermark.Format("2006-01-02T15:04:05Z07:00"), res.Rerun, res.TestMode)
	for _, s := range res.Sites {
		switch {
		case s.Err != nil:
			fmt.Printf("   %-12s %6d records  FAILED: %v\n", s.SiteID, s.Records, s.Err)
		case s.MarkErr != nil:
			fmt.Printf("   %-12s %6d records  sent, not marked: %v\n", s.SiteID, s.Records, s.MarkErr)
		default:
			fmt.Printf("   %-12s %6d records  %v\n", s.SiteID, s.Records, s.Files)
		}
	}
	fmt.Printf(">> %d records exported\n", res.Exported())
}

func init() {
	exportCmd.Flags().BoolVar(&exportTestMode, "test", false, "stage files only; no upload, no marking")
	exportCmd.Flags().StringVar(&exportAsOf, "as-of", "", "re-run the batch exported at this watermark (RFC 3339 or file stamp)")
	exportCmd.Flags().StringVar(&exportSite, "site", "", "restrict the run to one site")
}
