package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestCompact(t *testing.T) {
	cases := map[string]string{
		"select 1":                      "select 1",
		"  INSERT INTO products\n\t(sku)": "INSERT INTO products (sku)",
		"":                              "",
	}
	for in, want := range cases {
		if got := compact(in); got != want {
			t.Fatalf("compact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSummarizeArgs(t *testing.T) {
	got := summarizeArgs([]any{[]string{"a", "b", "c"}, 42, nil, []byte("raw")})
	want := []string{"string[len=3]", "42", "NULL", "[114 97 119]"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("summarizeArgs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTracer_LevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	tr := Tracer(zerolog.New(&buf))

	type line struct {
		Level     string   `json:"level"`
		ElapsedMS float64  `json:"elapsed_ms"`
		Slow      bool     `json:"slow"`
		SQL       string   `json:"sql"`
		Args      []string `json:"args"`
		Error     string   `json:"error"`
		Component string   `json:"component"`
	}

	ev := QueryEvent{
		SQL:       "INSERT INTO products\n SELECT * FROM unnest($1::text[])",
		Args:      []any{make([]string, 500)},
		ElapsedUS: 12_500,
		Err:       errors.New("boom"),
	}
	tr.OnQuery(context.Background(), ev)

	var l line
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &l); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if l.Level != "info" || l.Slow || l.Component != "pg" || l.Error != "boom" {
		t.Fatalf("unexpected line: %+v", l)
	}
	if l.ElapsedMS != 12.5 {
		t.Fatalf("elapsed_ms = %v", l.ElapsedMS)
	}
	if len(l.Args) != 1 || l.Args[0] != "string[len=500]" {
		t.Fatalf("args = %v", l.Args)
	}

	buf.Reset()
	ev.Slow = true
	tr.OnQuery(context.Background(), ev)
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if l.Level != "warn" || !l.Slow {
		t.Fatalf("slow query should log at warn: %+v", l)
	}
}
