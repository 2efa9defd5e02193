package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig      `mapstructure:"http"`
	Log        LogConfig       `mapstructure:"log"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Auth       AuthConfig      `mapstructure:"auth"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Ingest     IngestConfig    `mapstructure:"ingest"`
	RefData    RefDataConfig   `mapstructure:"refdata"`
	Export     ExportConfig    `mapstructure:"export"`
	Retention  RetentionConfig `mapstructure:"retention"`
	SFTP       SFTPConfig      `mapstructure:"sftp"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json | console
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	Topic           string   `mapstructure:"topic"`
	DeadLetterTopic string   `mapstructure:"dead_letter_topic"`
	GroupID         string   `mapstructure:"group_id"`
	MinBytes        int      `mapstructure:"min_bytes"`
	MaxBytes        int      `mapstructure:"max_bytes"`
	CommitInterval  int      `mapstructure:"commit_interval_ms"`
}

// AuthConfig lists the API keys accepted by the ingest API.
type AuthConfig struct {
	APIKeys []APIKey `mapstructure:"api_keys"`
}

type APIKey struct {
	Key    string `mapstructure:"key"`
	Issuer string `mapstructure:"issuer"`
	Admin  bool   `mapstructure:"admin"` // may trigger export and retention runs
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type IngestConfig struct {
	AllowedIssuers   []string          `mapstructure:"allowed_issuers"`
	CharReplacements []CharReplacement `mapstructure:"char_replacements"`
}

// CharReplacement is a list entry rather than a map key because viper
// lower-cases map keys.
type CharReplacement struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// ReplacementTable converts the configured list into a lookup table.
func (c IngestConfig) ReplacementTable() map[string]string {
	t := make(map[string]string, len(c.CharReplacements))
	for _, r := range c.CharReplacements {
		t[r.From] = r.To
	}
	return t
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type RefDataConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	SitePath  string        `mapstructure:"site_path"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

type ExportConfig struct {
	StagingDir  string `mapstructure:"staging_dir"`
	Timezone    string `mapstructure:"timezone"`
	Concurrency int    `mapstructure:"concurrency"`
	Cron        string `mapstructure:"cron"`
	TestMode    bool   `mapstructure:"test_mode"`
	AuditLog    bool   `mapstructure:"audit_log"` // write batches to ClickHouse export_log
}

type RetentionConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Cron       string `mapstructure:"cron"`
	MinAgeDays int    `mapstructure:"min_age_days"`
}

type SFTPConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	KnownHostsPath string        `mapstructure:"known_hosts_path"`
	RemoteDir      string        `mapstructure:"remote_dir"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	UploadTimeout  time.Duration `mapstructure:"upload_timeout"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (JGW_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (JGW_MYSQL_DSN, JGW_SFTP_PASSWORD, ...)
	v.SetEnvPrefix("JGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate fails fast on settings the core cannot run without.
func (c Config) Validate() error {
	var errs []error
	if len(c.Ingest.AllowedIssuers) == 0 {
		errs = append(errs, errors.New("ingest.allowed_issuers must not be empty"))
	}
	for _, r := range c.Ingest.CharReplacements {
		if len([]rune(r.From)) != 1 {
			errs = append(errs, fmt.Errorf("ingest.char_replacements: from %q must be one character", r.From))
		}
	}
	if c.Retention.MinAgeDays <= 0 {
		errs = append(errs, fmt.Errorf("retention.min_age_days must be positive, got %d", c.Retention.MinAgeDays))
	}
	if c.Export.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("export.concurrency must be positive, got %d", c.Export.Concurrency))
	}
	if _, err := time.LoadLocation(c.Export.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("export.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the export timezone; Validate guarantees it loads.
func (c ExportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
