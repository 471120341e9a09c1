package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	kit "catalogsync/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"trace", "trace"},
		{"debug", "debug"},
		{"verbose", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"fatal", "fatal"},
		{"panic", "panic"},
		{"", "info"},
		{"   nonsense   ", "info"},
	}
	for _, c := range cases {
		lvl := parseLevel(c.in)
		if strings.ToLower(lvl.String()) != c.want {
			t.Fatalf("parseLevel(%q) = %q, want %q", c.in, lvl, c.want)
		}
	}
}

func TestInit_NamedAndRunScoped(t *testing.T) {
	var buf bytes.Buffer

	Init(Options{
		Level:       "info",
		Format:      "console",
		Service:     "sync-a",
		Component:   "root",
		Writer:      &buf,
		WithCaller:  true,
		SampleEvery: 2,
		StaticFields: map[string]string{
			"build": "test",
		},
	})

	// re-sample to N=1 so every line is emitted
	rv := Get().Sample(&zerolog.BasicSampler{N: 1})
	rp := &rv
	rp.Info().Str("k", "v").Msg("root-msg")

	nv := Named("lock").Sample(&zerolog.BasicSampler{N: 1})
	np := &nv
	np.Info().Msg("named-msg")

	ctx := WithRequest(context.Background(), "req-123")
	ctx = WithRun(ctx, "run-9", "seller-42")
	cv := C(ctx).Sample(&zerolog.BasicSampler{N: 1})
	cp := &cv
	cp.Info().Msg("ctx-msg")

	out := buf.String()
	for _, want := range []string{
		"root-msg", "named-msg", "ctx-msg",
		"component=", "lock",
		"request_id=", "req-123",
		"run_id=", "run-9",
		"seller=", "seller-42",
		"build=", "service=", "sync-a",
	} {
		kit.MustContain(t, out, want)
	}
}

func TestRunID(t *testing.T) {
	if got := RunID(context.Background()); got != "" {
		t.Fatalf("RunID(empty ctx) = %q", got)
	}
	ctx := WithRun(context.Background(), "abc", "")
	if got := RunID(ctx); got != "abc" {
		t.Fatalf("RunID = %q, want abc", got)
	}
	if got := WithRequest(ctx, ""); got != ctx {
		t.Fatalf("WithRequest with empty id should return ctx unchanged")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_SERVICE", "svc-b")
	t.Setenv("LOG_COMPONENT", "comp-b")
	t.Setenv("LOG_CALLER", "true")
	t.Setenv("LOG_SAMPLE_EVERY", "5")

	opt := FromEnv()
	if opt.Level != "warn" {
		t.Fatalf("FromEnv Level = %q, want warn", opt.Level)
	}
	if opt.Format != "json" || opt.Service != "svc-b" || opt.Component != "comp-b" {
		t.Fatalf("FromEnv fields mismatch: %+v", opt)
	}
	if !opt.WithCaller || opt.SampleEvery != 5 {
		t.Fatalf("FromEnv caller/sample mismatch: %+v", opt)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("LOG_SERVICE", "")
	if got := FromEnv().Service; got != "catalogsync" {
		t.Fatalf("default service = %q", got)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error().Msg("dropped")
	if l.GetLevel() != zerolog.Disabled {
		t.Fatalf("Nop level = %v, want disabled", l.GetLevel())
	}
}
