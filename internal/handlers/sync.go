package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/vantegra/fieldgo/internal/sync"
)

// PushRequest is the body of a mutation push
type PushRequest struct {
	Mutations []sync.Mutation `json:"mutations"`
}

// pull serves one page of changed records for an entity type.
// GET /api/{entityType}/sync?since=&cursor=&limit=&scope=
func (r *Router) pull(w http.ResponseWriter, req *http.Request) {
	caller, ok := principal(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	entityType := mux.Vars(req)["entityType"]

	pullReq := sync.PullRequest{
		Cursor: req.URL.Query().Get("cursor"),
		Scope:  sync.Scope(req.URL.Query().Get("scope")),
	}

	if raw := req.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		pullReq.Since = &since
	}
	if raw := req.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		pullReq.Limit = limit
	}

	page, err := r.engine.Pull(req.Context(), caller.ID, entityType, pullReq)
	if err != nil {
		respondSyncError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// push applies a batch of mutations for an entity type.
// POST /api/{entityType}/sync/mutations
func (r *Router) push(w http.ResponseWriter, req *http.Request) {
	caller, ok := principal(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	entityType := mux.Vars(req)["entityType"]

	if !r.limiter.Allow(caller.ID) {
		respondError(w, http.StatusTooManyRequests, "Push rate limit exceeded, slow down")
		return
	}

	var pushReq PushRequest
	if err := json.NewDecoder(req.Body).Decode(&pushReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// The URL segment is authoritative for dispatch and the ledger.
	for i := range pushReq.Mutations {
		pushReq.Mutations[i].EntityType = entityType
	}

	results, err := r.engine.Push(req.Context(), caller.ID, entityType, pushReq.Mutations)
	if err != nil {
		respondSyncError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// respondSyncError maps engine errors onto HTTP statuses. Anything not
// recognized is a storage fault the client should retry.
func respondSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sync.ErrUnknownEntityType):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sync.ErrBadCursor), errors.Is(err, sync.ErrBadScope):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sync.ErrOwnership):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		respondError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry later")
	}
}
