package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PullRequest carries the transport-level pull parameters. Cursor, when
// present, is authoritative: Since and Scope are taken from the token
// instead of the request so every page of a session sees one window.
type PullRequest struct {
	Since  *time.Time
	Cursor string
	Limit  int
	Scope  Scope
}

// Pull returns one page of records changed in userID's account, ordered
// by (updatedAt ASC, id ASC). Tombstones are included so clients can
// drop local copies. Pull never writes.
func (e *Engine) Pull(ctx context.Context, userID, entityType string, req PullRequest) (*PullPage, error) {
	adapter, err := e.registry.Adapter(entityType)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	q := PageQuery{UserID: userID, Limit: limit, Scope: ScopeAll}

	if req.Cursor != "" {
		claims, err := decodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		if claims.UserID != userID {
			return nil, fmt.Errorf("%w: cursor issued to another account", ErrOwnership)
		}
		if claims.EntityType != entityType {
			return nil, fmt.Errorf("%w: cursor issued for %q", ErrBadCursor, claims.EntityType)
		}
		q.Scope = claims.Scope
		q.After = &Position{UpdatedAt: claims.UpdatedAt, ID: claims.ID}
	} else {
		if req.Scope != "" {
			q.Scope = req.Scope
		}
		if req.Since != nil {
			q.Since = req.Since.UTC()
		}
	}

	if !q.Scope.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrBadScope, q.Scope)
	}

	// The recent window is a floor on Since. It is recomputed per page;
	// rows aging out mid-session are behind the cursor already.
	if q.Scope == ScopeRecent && e.recentWindow > 0 {
		start := e.now().UTC().Add(-e.recentWindow)
		if q.Since.Before(start) {
			q.Since = start
		}
	}

	records, hasMore, err := adapter.Page(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", entityType, err)
	}

	page := &PullPage{
		Data:    make([]json.RawMessage, 0, len(records)),
		HasMore: hasMore,
	}
	for _, r := range records {
		page.Data = append(page.Data, r.Payload)
	}
	if hasMore && len(records) > 0 {
		last := records[len(records)-1]
		token := encodeCursor(cursorClaims{
			UserID:     userID,
			EntityType: entityType,
			Scope:      q.Scope,
			UpdatedAt:  last.UpdatedAt,
			ID:         last.ID,
		})
		page.NextCursor = &token
	}
	return page, nil
}
