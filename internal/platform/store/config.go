package store

import (
	"time"

	"catalogsync/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	KV KVConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	StatementTimeout time.Duration
	MaxConnIdle      time.Duration

	// boot knobs
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// KVConfig configures redis connectivity. URL accepts redis://, rediss:// and
// memory:// (in-process map, for dry runs and tests)
type KVConfig struct {
	Enabled bool
	URL     string
	DB      int
	LogCmds bool

	ConnectRetries int
	PingTimeout    time.Duration
}

// ConfigFromEnv reads SERVICE_PGSQL_* and SERVICE_REDIS_* the same way every binary does
func ConfigFromEnv(cfg config.Conf, app string) Config {
	pgc := cfg.Prefix("SERVICE_PGSQL_")
	kvc := cfg.Prefix("SERVICE_REDIS_")
	return Config{
		AppName: app,
		PG: PGConfig{
			Enabled:          pgc.MayString("DBURL", "") != "",
			URL:              pgc.MayString("DBURL", ""),
			MaxConns:         int32(pgc.MayInt("MAX_CONNS", 8)),
			LogSQL:           pgc.MayBool("LOG_SQL", false),
			SlowQueryMs:      pgc.MayInt("SLOW_MS", 500),
			StatementTimeout: pgc.MayDuration("STATEMENT_TIMEOUT", 0),
			MaxConnIdle:      pgc.MayDuration("MAX_CONN_IDLE", 5*time.Minute),
			ConnectRetries:   pgc.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:      pgc.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		KV: KVConfig{
			Enabled:        kvc.MayString("URL", "") != "",
			URL:            kvc.MayString("URL", ""),
			DB:             kvc.MayInt("DB", -1),
			LogCmds:        kvc.MayBool("LOG_CMDS", false),
			ConnectRetries: kvc.MayInt("CONNECT_RETRIES", 10),
			PingTimeout:    kvc.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
	}
}
