package config

import (
	"testing"
	"time"

	kit "catalogsync/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	sync := New().Prefix("CORE_").Prefix("SYNC_")
	if got := sync.key("MODE"); got != "CORE_SYNC_MODE" {
		t.Fatalf("key() = %q, want CORE_SYNC_MODE", got)
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("APP_")
	t.Setenv("APP_SELLER", "  1234 ")
	if got := c.MustString("SELLER"); got != "1234" {
		t.Fatalf("MustString = %q, want 1234", got)
	}
	t.Setenv("APP_BLANK", "   ")
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
	kit.MustPanic(t, func() { _ = c.MustString("BLANK") })
}

func TestMustInt(t *testing.T) {
	c := New().Prefix("SVC_")
	t.Setenv("SVC_WIDTH", " 20 ")
	if got := c.MustInt("WIDTH"); got != 20 {
		t.Fatalf("MustInt = %d, want 20", got)
	}
	kit.MustPanic(t, func() { _ = c.MustInt("MISSING") })
	t.Setenv("SVC_BAD", "x")
	kit.MustPanic(t, func() { _ = c.MustInt("BAD") })
}

func TestMustURL(t *testing.T) {
	c := New().Prefix("U_")
	t.Setenv("U_BASE", "https://api.example.com/v1")
	if u := c.MustURL("BASE"); u.Host != "api.example.com" {
		t.Fatalf("MustURL host = %q", u.Host)
	}
	t.Setenv("U_BAD1", "://bad")
	kit.MustPanic(t, func() { _ = c.MustURL("BAD1") })
	t.Setenv("U_BAD2", "/relative")
	kit.MustPanic(t, func() { _ = c.MustURL("BAD2") })
}

func TestMayScalars(t *testing.T) {
	c := New().Prefix("M_")
	t.Setenv("M_INT", " 7 ")
	t.Setenv("M_BADINT", "x")
	t.Setenv("M_F", "2.5")
	t.Setenv("M_BADF", "nan-ish")
	t.Setenv("M_B", "true")
	t.Setenv("M_BADB", "nope")
	t.Setenv("M_D", "150ms")
	t.Setenv("M_BADD", "soon")

	if got := c.MayString("MISSING", "def"); got != "def" {
		t.Fatalf("MayString default = %q", got)
	}
	if got := c.MayInt("INT", 0); got != 7 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayInt("BADINT", 3); got != 3 {
		t.Fatalf("MayInt bad = %d", got)
	}
	if got := c.MayFloat64("F", 0); got != 2.5 {
		t.Fatalf("MayFloat64 = %v", got)
	}
	if got := c.MayFloat64("BADF", 1.5); got != 1.5 {
		t.Fatalf("MayFloat64 bad = %v", got)
	}
	if !c.MayBool("B", false) || c.MayBool("BADB", false) {
		t.Fatalf("MayBool mismatch")
	}
	if got := c.MayDuration("D", time.Second); got != 150*time.Millisecond {
		t.Fatalf("MayDuration = %v", got)
	}
	if got := c.MayDuration("BADD", time.Minute); got != time.Minute {
		t.Fatalf("MayDuration bad = %v", got)
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("CSV_")
	def := []string{"gold_special"}

	if got := c.MayCSV("MISS", def); len(got) != 1 || got[0] != "gold_special" {
		t.Fatalf("MayCSV default mismatch: %#v", got)
	}

	t.Setenv("CSV_VALS", " one, two , ,three ,, ")
	got := c.MayCSV("VALS", nil)
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("MayCSV len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MayCSV[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	t.Setenv("CSV_BLANKS", " , ,  ,")
	if got := c.MayCSV("BLANKS", def); len(got) != 1 {
		t.Fatalf("MayCSV all-empty should fall back: %#v", got)
	}

	t.Setenv("CSV_OFF", "-")
	if got := c.MayCSV("OFF", def); got == nil || len(got) != 0 {
		t.Fatalf("MayCSV dash should disable: %#v", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("E_")
	if got := c.MayEnum("MISS", "cursor", "cursor", "pages"); got != "cursor" {
		t.Fatalf("MayEnum default = %q", got)
	}
	t.Setenv("E_MODE", "PAGES")
	if got := c.MayEnum("MODE", "cursor", "cursor", "pages"); got != "pages" {
		t.Fatalf("MayEnum = %q, want pages", got)
	}
	if got := c.MayEnum("MISSING", "", "cursor"); got != "" {
		t.Fatalf("MayEnum empty default = %q", got)
	}
	t.Setenv("E_BAD", "offset")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "cursor", "cursor", "pages") })
}

func TestMayPort(t *testing.T) {
	c := New().Prefix("P_")
	if got := c.MayPort("MISSING", 4000); got != ":4000" {
		t.Fatalf("MayPort default = %q", got)
	}
	t.Setenv("P_PORT", "8081")
	if got := c.MayPort("PORT", 4000); got != ":8081" {
		t.Fatalf("MayPort = %q", got)
	}
	t.Setenv("P_OOB", "70000")
	kit.MustPanic(t, func() { _ = c.MayPort("OOB", 4000) })
}

func TestMayLocation(t *testing.T) {
	c := New().Prefix("TZ_")
	if got := c.MayLocation("MISSING", "UTC"); got != time.UTC {
		t.Fatalf("MayLocation default = %v", got)
	}
	t.Setenv("TZ_ZONE", "America/Argentina/Buenos_Aires")
	if got := c.MayLocation("ZONE", "UTC"); got.String() != "America/Argentina/Buenos_Aires" {
		t.Fatalf("MayLocation = %v", got)
	}
	t.Setenv("TZ_BAD", "Mars/Olympus")
	if got := c.MayLocation("BAD", ""); got != time.UTC {
		t.Fatalf("MayLocation bad = %v, want UTC", got)
	}
}
