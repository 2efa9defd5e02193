package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/jmehdipour/judgment-gateway/internal/app"
	"github.com/jmehdipour/judgment-gateway/internal/db"
	"github.com/jmehdipour/judgment-gateway/migrations"
)

var migrateClickHouse bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the judgments table and the export audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}

		sqlDB, err := app.OpenMySQL(cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if err := runMigrations(cmd, sqlDB, migrations.MySQLDir); err != nil {
			return err
		}

		if !cmd.Flags().Changed("clickhouse") {
			migrateClickHouse = cfg.Export.AuditLog
		}
		if migrateClickHouse {
			chDB, err := app.OpenClickHouse(cfg)
			if err != nil {
				return err
			}
			defer chDB.Close()
			if err := runMigrations(cmd, chDB, migrations.ClickHouseDir); err != nil {
				return err
			}
		}

		fmt.Println(">> Migration complete ✅")
		return nil
	},
}

func runMigrations(cmd *cobra.Command, conn *sqlx.DB, dir string) error {
	applied, err := db.ApplyMigrations(cmd.Context(), conn, migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	for _, name := range applied {
		fmt.Printf(">> applied %s\n", name)
	}
	return nil
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateClickHouse, "clickhouse", false, "also create the ClickHouse export_log (default: export.audit_log)")
}
