// Package migrations embeds the schema scripts applied by the migrate command.
package migrations

import "embed"

//go:embed mysql/*.sql clickhouse/*.sql
var FS embed.FS

const (
	MySQLDir      = "mysql"
	ClickHouseDir = "clickhouse"
)
