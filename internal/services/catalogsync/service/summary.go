package service

import (
	"fmt"
	"time"

	"catalogsync/internal/platform/logger"
	"catalogsync/internal/services/catalogsync/domain"
)

// HumanDuration renders d as "1h 2m 3s", "2m 3s" or "3s", truncated to seconds
func HumanDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	h, m, s := secs/3600, secs/60%60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// ChangeRate renders the changed share of fetched records with two decimals
func ChangeRate(s domain.SyncStats) string {
	return fmt.Sprintf("%.2f", s.ChangeRate())
}

func logSummary(log *logger.Logger, s domain.SyncStats) {
	ev := log.Info()
	if s.Outcome == domain.OutcomeFailed {
		ev = log.Error().Str("error", s.Error)
	}
	ev.Str("outcome", string(s.Outcome)).
		Str("mode", string(s.Mode)).
		Str("duration", HumanDuration(s.Duration())).
		Int("batches", s.Batches).
		Int("pages", s.Pages).
		Int("failed_pages", s.FailedPages).
		Int("fetched", s.Fetched).
		Int("changed", s.Changed).
		Int64("updated", s.Updated).
		Int("hashes_updated", s.HashesUpdated).
		Int("skipped", s.Skipped).
		Int("filtered", s.Filtered).
		Int("rejected", s.Rejected).
		Str("change_rate_pct", ChangeRate(s)).
		Msg("catalog sync finished")
}
