package service

import (
	"catalogsync/internal/core/fingerprint"
	"catalogsync/internal/services/catalogsync/domain"

	"github.com/shopspring/decimal"
)

// ToTarget projects a source record onto the target schema
func ToTarget(r domain.SourceRecord) domain.TargetUpdateRecord {
	status := domain.StatusInactive
	if r.Status == "active" {
		status = domain.StatusActive
	}
	return domain.TargetUpdateRecord{
		SKU:          r.SKU,
		Price:        decimal.NewFromFloat(r.SalePrice),
		Stock:        r.Stock,
		Status:       status,
		LeadTimeDays: fingerprint.ParseLeadTimeDays(r.LeadTime),
	}
}
