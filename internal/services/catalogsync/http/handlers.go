// Package http provides the sync trigger and run history endpoints
package http

import (
	"context"
	stdhttp "net/http"

	"catalogsync/internal/modkit/httpkit"
	"catalogsync/internal/services/catalogsync/domain"
)

// HolderFunc reports the current run lock holder, empty when free
type HolderFunc func(ctx context.Context) (string, error)

// Register mounts the sync endpoints on r
func Register(r httpkit.Router, launch domain.Launcher, runs domain.RunLister, holder HolderFunc) {
	h := &handlers{launch: launch, runs: runs, holder: holder}

	// start a run now; it continues after the reply
	httpkit.Post(r, "/runs", h.trigger)

	// run history, newest first
	httpkit.GetQuery[ListQuery](r, "/runs", h.list)

	// whether a run currently holds the lock
	httpkit.GetQuery[struct{}](r, "/status", h.status)
}

// ListQuery filters and pages the run history
type ListQuery struct {
	Seller string `query:"seller" json:"seller"`
	Limit  int    `query:"limit" json:"limit" validate:"gte=0,lte=200"`
	Offset int    `query:"offset" json:"offset" validate:"gte=0"`
}

// Accepted is the body of a 202 trigger reply
type Accepted struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// Status is the body of the status reply
type Status struct {
	Running bool   `json:"running"`
	Holder  string `json:"holder,omitempty"`
}

type handlers struct {
	launch domain.Launcher
	runs   domain.RunLister
	holder HolderFunc
}

func (h *handlers) trigger(r *stdhttp.Request) (any, error) {
	id, err := h.launch.Launch(r.Context())
	if err != nil {
		return nil, err
	}
	return httpkit.Accepted(Accepted{RunID: id, Status: "accepted"}), nil
}

func (h *handlers) list(r *stdhttp.Request, q ListQuery) (any, error) {
	items, err := h.runs.ListRuns(r.Context(), q.Seller, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	return httpkit.List(items, q.Limit, q.Offset, len(items)), nil
}

func (h *handlers) status(r *stdhttp.Request, _ struct{}) (any, error) {
	if h.holder == nil {
		return Status{}, nil
	}
	holder, err := h.holder(r.Context())
	if err != nil {
		return nil, err
	}
	return Status{Running: holder != "", Holder: holder}, nil
}
