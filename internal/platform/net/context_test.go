package net

import (
	"context"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestWithRequest(t *testing.T) {
	ctx := WithRequest(context.Background(), "req-1")
	if got := RequestID(ctx); got != "req-1" {
		t.Fatalf("RequestID = %q", got)
	}
	if got := chimw.GetReqID(ctx); got != "req-1" {
		t.Fatalf("chi id = %q", got)
	}
}

func TestWithRequest_Empty(t *testing.T) {
	base := context.Background()
	if WithRequest(base, "") != base {
		t.Fatal("empty id should return ctx unchanged")
	}
	if RequestID(base) != "" {
		t.Fatal("want empty id")
	}
}
