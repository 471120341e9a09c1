package module

import (
	"time"

	"catalogsync/internal/core/version"
	"catalogsync/internal/platform/config"
	"catalogsync/internal/platform/validate"
	"catalogsync/internal/services/catalogsync/schedule"
)

// Options for the catalogsync module
type Options struct {
	Seller string `env:"CORE_SYNC_SELLER_ID" validate:"notblank"`
	Mode   string `env:"CORE_SYNC_MODE" validate:"oneof=cursor pages"`

	PageWidth        int           `env:"CORE_SYNC_PAGE_WIDTH" validate:"min=1,max=200"`
	PageConcurrency  int           `env:"CORE_SYNC_PAGE_CONCURRENCY" validate:"min=0"`
	Retries          int           `env:"CORE_SYNC_RETRIES" validate:"min=1,max=10"`
	RetryBase        time.Duration `env:"CORE_SYNC_RETRY_BASE" validate:"gt=0"`
	MaxFailedBatches int           `env:"CORE_SYNC_MAX_FAILED_BATCHES"`

	StateKey       string        `env:"CORE_SYNC_STATE_KEY" validate:"notblank"`
	LockKey        string        `env:"CORE_SYNC_LOCK_KEY" validate:"notblank"`
	LockTTL        time.Duration `env:"CORE_SYNC_LOCK_TTL" validate:"gt=0"`
	LockFenced     bool          `env:"CORE_SYNC_LOCK_FENCED"`
	LockFailOpen   bool          `env:"CORE_SYNC_LOCK_FAIL_OPEN"`
	ReleaseTimeout time.Duration `env:"CORE_SYNC_RELEASE_TIMEOUT" validate:"gt=0"`

	ApplyChunk       int           `env:"CORE_SYNC_APPLY_CHUNK" validate:"min=1,max=10000"`
	StatementTimeout time.Duration `env:"CORE_SYNC_STATEMENT_TIMEOUT" validate:"gte=0"`
	RecordRuns       bool          `env:"CORE_SYNC_RECORD_RUNS"`

	Schedule string         `env:"CORE_SYNC_SCHEDULE" validate:"notblank"`
	Location *time.Location `env:"CORE_SYNC_TIMEZONE" validate:"required"`

	BaseURL      string        `env:"CORE_AUTOMELI_BASE_URL" validate:"required,url"`
	UserAgent    string        `env:"CORE_AUTOMELI_USER_AGENT"`
	Timeout      time.Duration `env:"CORE_AUTOMELI_TIMEOUT" validate:"gt=0"`
	RPS          float64       `env:"CORE_AUTOMELI_RPS" validate:"gte=0"`
	Burst        int           `env:"CORE_AUTOMELI_BURST" validate:"gte=0"`
	ListingTypes []string      `env:"CORE_AUTOMELI_LISTING_TYPES"`
	AppStatus    string        `env:"CORE_AUTOMELI_APP_STATUS" validate:"notblank"`
}

// FromConfig fills options from environment
// CORE_SYNC_SELLER_ID (required) is the Automeli seller whose catalog is mirrored
// CORE_SYNC_MODE (default "cursor") picks cursor or batch-of-pages pagination
// CORE_SYNC_PAGE_WIDTH (default 20) is how many pages one batch requests in pages mode
// CORE_SYNC_MAX_FAILED_BATCHES (default 5, negative never aborts) bounds consecutive all-failed batches
// CORE_SYNC_LOCK_FENCED (default false) releases the lock only while it still holds this run's token
// CORE_SYNC_LOCK_FAIL_OPEN (default false) runs without the lock when redis is unreachable
// CORE_SYNC_SCHEDULE / CORE_SYNC_TIMEZONE set the six-field cron and the zone it is read in
// CORE_AUTOMELI_LISTING_TYPES (default "gold_special", "-" keeps all) filters records at the boundary
func FromConfig(cfg config.Conf) Options {
	s := cfg.Prefix("CORE_SYNC_")
	a := cfg.Prefix("CORE_AUTOMELI_")
	return Options{
		Seller: s.MayString("SELLER_ID", ""),
		Mode:   s.MayEnum("MODE", "cursor", "cursor", "pages"),

		PageWidth:        s.MayInt("PAGE_WIDTH", 20),
		PageConcurrency:  s.MayInt("PAGE_CONCURRENCY", 0),
		Retries:          s.MayInt("RETRIES", 3),
		RetryBase:        s.MayDuration("RETRY_BASE", 500*time.Millisecond),
		MaxFailedBatches: s.MayInt("MAX_FAILED_BATCHES", 5),

		StateKey:       s.MayString("STATE_KEY", "automeli_products_state"),
		LockKey:        s.MayString("LOCK_KEY", "automeli_sync:running"),
		LockTTL:        s.MayDuration("LOCK_TTL", 4*time.Hour),
		LockFenced:     s.MayBool("LOCK_FENCED", false),
		LockFailOpen:   s.MayBool("LOCK_FAIL_OPEN", false),
		ReleaseTimeout: s.MayDuration("RELEASE_TIMEOUT", 10*time.Second),

		ApplyChunk:       s.MayInt("APPLY_CHUNK", 500),
		StatementTimeout: s.MayDuration("STATEMENT_TIMEOUT", 0),
		RecordRuns:       s.MayBool("RECORD_RUNS", true),

		Schedule: s.MayString("SCHEDULE", schedule.DefaultSpec),
		Location: s.MayLocation("TIMEZONE", schedule.DefaultZone),

		BaseURL:      a.MayString("BASE_URL", ""),
		UserAgent:    a.MayString("USER_AGENT", "catalogsync/"+version.Info().Version),
		Timeout:      a.MayDuration("TIMEOUT", 60*time.Second),
		RPS:          a.MayFloat64("RPS", 5),
		Burst:        a.MayInt("BURST", 5),
		ListingTypes: a.MayCSV("LISTING_TYPES", []string{"gold_special"}),
		AppStatus:    a.MayString("APP_STATUS", "1"),
	}
}

// Validate reports the first invalid option, naming its env key
func (o Options) Validate() error { return validate.Struct(o) }
