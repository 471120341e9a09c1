// Package fingerprint derives the change-detection digest of a catalog record
// and the lead-time projection the target store keeps.
//
// The digest is md5 over "sku|price|stock|status|leadtime" with the lead time
// rendered empty when absent. Price uses the shortest decimal form, so 100 and
// 100.0 hash the same and 1234.5 never renders as 1234.50.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"catalogsync/internal/core/normalize"
	"catalogsync/internal/services/catalogsync/domain"
)

const sep = "|"

// Compute returns the fingerprint of r. Raw and the identity fields outside
// the digest (external id, listing type) do not participate.
func Compute(r domain.SourceRecord) domain.Fingerprint {
	lead := ""
	if r.LeadTime != nil {
		lead = *r.LeadTime
	}
	parts := []string{
		r.SKU,
		strconv.FormatFloat(r.SalePrice, 'f', -1, 64),
		strconv.Itoa(r.Stock),
		r.Status,
		lead,
	}
	sum := md5.Sum([]byte(strings.Join(parts, sep)))
	return domain.Fingerprint(hex.EncodeToString(sum[:]))
}

// ParseLeadTimeDays extracts the first integer from a free-text lead time.
// nil, text without digits, or a value that does not fit int4 yields nil.
func ParseLeadTimeDays(lead *string) *int {
	if lead == nil {
		return nil
	}
	n, ok := normalize.FirstInt(*lead)
	if !ok || n > math.MaxInt32 {
		return nil
	}
	return &n
}
