package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vantegra/fieldgo/internal/middleware"
	"github.com/vantegra/fieldgo/internal/sync"
)

// The CRUD routes serve the web dashboard. Writes go through the same
// entity adapters as the sync push, so updatedAt advances and offline
// clients pick the edits up on their next pull.

func (r *Router) adapterFor(w http.ResponseWriter, req *http.Request) (sync.Adapter, middleware.Principal, bool) {
	caller, ok := principal(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return nil, caller, false
	}
	adapter, err := r.engine.Adapter(mux.Vars(req)["entityType"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return nil, caller, false
	}
	return adapter, caller, true
}

// list returns the caller's live records of one type.
// GET /api/{entityType}?limit=
func (r *Router) list(w http.ResponseWriter, req *http.Request) {
	adapter, caller, ok := r.adapterFor(w, req)
	if !ok {
		return
	}

	limit := 100
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	if limit < 1 {
		limit = 1
	}
	if limit > sync.MaxPageSize {
		limit = sync.MaxPageSize
	}

	records, _, err := adapter.Page(req.Context(), sync.PageQuery{
		UserID: caller.ID,
		Scope:  sync.ScopeAll,
		Limit:  limit,
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return
	}

	data := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		if tombstoned(rec.Payload) {
			continue
		}
		data = append(data, rec.Payload)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":  data,
		"count": len(data),
	})
}

// get returns one live record.
// GET /api/{entityType}/{id}
func (r *Router) get(w http.ResponseWriter, req *http.Request) {
	adapter, caller, ok := r.adapterFor(w, req)
	if !ok {
		return
	}
	id := mux.Vars(req)["id"]

	meta, err := adapter.Meta(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return
	}
	if meta == nil || meta.UserID != caller.ID || meta.Deleted {
		respondError(w, http.StatusNotFound, "Record not found")
		return
	}

	payload, err := adapter.Get(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return
	}
	respondJSON(w, http.StatusOK, payload)
}

// create inserts a record with a server-minted id.
// POST /api/{entityType}
func (r *Router) create(w http.ResponseWriter, req *http.Request) {
	adapter, caller, ok := r.adapterFor(w, req)
	if !ok {
		return
	}

	body, err := io.ReadAll(req.Body)
	if err != nil || !json.Valid(body) {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := adapter.ValidateRefs(req.Context(), caller.ID, body); err != nil {
		respondAdapterError(w, err)
		return
	}

	id := uuid.NewString()
	var payload json.RawMessage
	err = r.store.InTx(req.Context(), func(ctx context.Context) error {
		payload, err = adapter.Create(ctx, caller.ID, id, body)
		return err
	})
	if err != nil {
		respondAdapterError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, payload)
}

// update patches a record. Updating a tombstone restores it.
// PUT /api/{entityType}/{id}
func (r *Router) update(w http.ResponseWriter, req *http.Request) {
	adapter, caller, ok := r.adapterFor(w, req)
	if !ok {
		return
	}
	id := mux.Vars(req)["id"]

	meta, err := adapter.Meta(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return
	}
	if meta == nil || meta.UserID != caller.ID {
		respondError(w, http.StatusNotFound, "Record not found")
		return
	}

	body, err := io.ReadAll(req.Body)
	if err != nil || !json.Valid(body) {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := adapter.ValidateRefs(req.Context(), caller.ID, body); err != nil {
		respondAdapterError(w, err)
		return
	}

	var payload json.RawMessage
	err = r.store.InTx(req.Context(), func(ctx context.Context) error {
		payload, err = adapter.Update(ctx, caller.ID, id, body)
		return err
	})
	if err != nil {
		respondAdapterError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payload)
}

// remove soft-deletes a record so the deletion reaches offline clients.
// DELETE /api/{entityType}/{id}
func (r *Router) remove(w http.ResponseWriter, req *http.Request) {
	adapter, caller, ok := r.adapterFor(w, req)
	if !ok {
		return
	}
	id := mux.Vars(req)["id"]

	meta, err := adapter.Meta(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return
	}
	if meta == nil || meta.UserID != caller.ID || meta.Deleted {
		respondError(w, http.StatusNotFound, "Record not found")
		return
	}

	err = r.store.InTx(req.Context(), func(ctx context.Context) error {
		_, err := adapter.SoftDelete(ctx, caller.ID, id)
		return err
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Record deleted"})
}

// respondAdapterError maps adapter write errors onto HTTP statuses.
func respondAdapterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sync.ErrOwnership):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, sync.ErrRefNotFound), errors.Is(err, sync.ErrBadPayload):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
	}
}

func tombstoned(payload json.RawMessage) bool {
	var probe struct {
		DeletedAt *time.Time `json:"deletedAt"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	return probe.DeletedAt != nil
}
