// Package app wires configuration into connections and services for the
// CLI commands.
package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/config"
	"github.com/jmehdipour/judgment-gateway/internal/db"
	"github.com/jmehdipour/judgment-gateway/internal/logger"
	"github.com/jmehdipour/judgment-gateway/internal/normalize"
	"github.com/jmehdipour/judgment-gateway/internal/refdata"
	"github.com/jmehdipour/judgment-gateway/internal/repository"
	"github.com/jmehdipour/judgment-gateway/internal/service/export"
	"github.com/jmehdipour/judgment-gateway/internal/service/ingest"
	"github.com/jmehdipour/judgment-gateway/internal/service/retention"
	"github.com/jmehdipour/judgment-gateway/internal/transfer"
)

// Bootstrap loads config and initialises the global logger.
func Bootstrap(cfgPath string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.Init(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func OpenMySQL(cfg config.Config) (*sqlx.DB, error) {
	mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}
	return mysqlDB, nil
}

func OpenClickHouse(cfg config.Config) (*sqlx.DB, error) {
	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse connect: %w", err)
	}
	return chDB, nil
}

func OpenRedis(cfg config.Config) (*redis.Client, error) {
	rdb, err := db.NewRedisClient(db.RedisOpts{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return rdb, nil
}

// NewIngest builds the ingest service. rdb may be nil, which disables the
// court code cache.
func NewIngest(cfg config.Config, mysqlDB *sqlx.DB, rdb *redis.Client, log *zap.Logger) (*ingest.Service, error) {
	norm, err := normalize.FromStrings(cfg.Ingest.ReplacementTable())
	if err != nil {
		return nil, fmt.Errorf("replacement table: %w", err)
	}

	var resolver refdata.CourtCodeResolver = refdata.NewHTTPResolver(
		cfg.RefData.BaseURL,
		cfg.RefData.SitePath,
		cfg.RefData.TimeoutMs,
		cfg.RefData.Breaker.FailThreshold,
		cfg.RefData.Breaker.OpenForMs,
	)
	if rdb != nil && cfg.RefData.CacheTTL > 0 {
		resolver = refdata.NewCachingResolver(resolver, refdata.NewRedisCache(rdb), cfg.RefData.CacheTTL, log)
	}

	return ingest.New(
		ingest.NewValidator(cfg.Ingest.AllowedIssuers),
		resolver,
		ingest.NewTransformer(norm),
		repository.NewMySQLJudgmentsRepository(mysqlDB),
		log,
	), nil
}

// NewExport builds the export service. chDB may be nil, which disables the
// export audit log. Without SFTP credentials uploads fail with
// transfer.ErrNotConfigured.
func NewExport(cfg config.Config, mysqlDB, chDB *sqlx.DB, log *zap.Logger) (*export.Service, error) {
	log = logger.OrNop(log)
	fs := afero.NewOsFs()

	var ft transfer.FileTransfer = transfer.Unconfigured{}
	if cfg.SFTP.Password != "" || cfg.SFTP.PrivateKeyPath != "" {
		sftp, err := transfer.NewSFTP(cfg.SFTP, fs, log)
		if err != nil {
			return nil, err
		}
		ft = sftp
	} else {
		log.Warn("sftp credentials not set; only test-mode exports can succeed")
	}

	var exportLog repository.ExportLogRepository
	if chDB != nil {
		exportLog = repository.NewCHExportLogRepository(chDB)
	}

	return export.New(
		repository.NewMySQLJudgmentsRepository(mysqlDB),
		ft,
		export.NewStaging(fs, cfg.Export.StagingDir),
		exportLog,
		cfg.Export.Location(),
		cfg.Export.Concurrency,
		log,
	), nil
}

func NewSweeper(cfg config.Config, mysqlDB *sqlx.DB, log *zap.Logger) *retention.Sweeper {
	return retention.NewSweeper(repository.NewMySQLJudgmentsRepository(mysqlDB), cfg.Export.Location(), log)
}
