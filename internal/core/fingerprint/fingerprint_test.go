package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"catalogsync/internal/services/catalogsync/domain"
)

func strp(s string) *string { return &s }

func md5hex(s string) domain.Fingerprint {
	sum := md5.Sum([]byte(s))
	return domain.Fingerprint(hex.EncodeToString(sum[:]))
}

func base() domain.SourceRecord {
	return domain.SourceRecord{
		SKU:       "A1",
		SalePrice: 100,
		Stock:     5,
		Status:    "active",
		LeadTime:  strp("3 days"),
	}
}

func TestCompute_KnownVectors(t *testing.T) {
	r := base()
	if got, want := Compute(r), md5hex("A1|100|5|active|3 days"); got != want {
		t.Fatalf("Compute = %s, want %s", got, want)
	}

	r.LeadTime = nil
	if got, want := Compute(r), md5hex("A1|100|5|active|"); got != want {
		t.Fatalf("Compute nil lead = %s, want %s", got, want)
	}

	r.SalePrice = 1234.5
	if got, want := Compute(r), md5hex("A1|1234.5|5|active|"); got != want {
		t.Fatalf("Compute fractional price = %s, want %s", got, want)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a, b := base(), base()
	b.Raw = []byte(`{"title":"ignored"}`)
	b.ListingType = "gold_pro"
	b.ExternalID = "MLA1"
	if Compute(a) != Compute(b) {
		t.Fatalf("fields outside the digest changed the fingerprint")
	}
	if len(Compute(a)) != 32 {
		t.Fatalf("fingerprint should be 32 hex chars, got %q", Compute(a))
	}
}

func TestCompute_SensitiveToEachField(t *testing.T) {
	ref := Compute(base())
	mut := []struct {
		name string
		fn   func(*domain.SourceRecord)
	}{
		{"sku", func(r *domain.SourceRecord) { r.SKU = "A2" }},
		{"price", func(r *domain.SourceRecord) { r.SalePrice = 100.01 }},
		{"stock", func(r *domain.SourceRecord) { r.Stock = 6 }},
		{"status", func(r *domain.SourceRecord) { r.Status = "paused" }},
		{"lead time", func(r *domain.SourceRecord) { r.LeadTime = strp("4 days") }},
		{"lead time removed", func(r *domain.SourceRecord) { r.LeadTime = nil }},
	}
	for _, m := range mut {
		r := base()
		m.fn(&r)
		if Compute(r) == ref {
			t.Fatalf("changing %s did not change the fingerprint", m.name)
		}
	}
}

func TestParseLeadTimeDays(t *testing.T) {
	if ParseLeadTimeDays(nil) != nil {
		t.Fatalf("nil lead should give nil")
	}
	if ParseLeadTimeDays(strp("a convenir")) != nil {
		t.Fatalf("text without digits should give nil")
	}
	got := ParseLeadTimeDays(strp("entrega en 15 dias"))
	if got == nil || *got != 15 {
		t.Fatalf("LeadTimeDays = %v, want 15", got)
	}
	got = ParseLeadTimeDays(strp("７ días"))
	if got == nil || *got != 7 {
		t.Fatalf("fullwidth LeadTimeDays = %v, want 7", got)
	}
	if got := ParseLeadTimeDays(strp("3000000000 dias")); got != nil {
		t.Fatalf("lead beyond int4 = %v, want nil", *got)
	}
	got = ParseLeadTimeDays(strp("2147483647 dias"))
	if got == nil || *got != 2147483647 {
		t.Fatalf("int4 max LeadTimeDays = %v, want 2147483647", got)
	}
}
