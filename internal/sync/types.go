package sync

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Mutation types.
const (
	MutationCreate = "create"
	MutationUpdate = "update"
	MutationDelete = "delete"
)

// Terminal mutation statuses. A mutation is only ever "received" in
// flight; every stored or returned result carries one of these.
const (
	StatusApplied   = "applied"
	StatusConflict  = "conflict"
	StatusRejected  = "rejected"
	StatusDuplicate = "duplicate"
)

// ReasonOwnership is the rejection reason for any cross-tenant access:
// the target record or a referenced foreign key belongs to another
// account. Deliberately uniform so the response does not leak which.
const ReasonOwnership = "ownership"

// ReasonStorage is the rejection reason for transient storage faults.
// These outcomes are never written to the ledger, so retrying with the
// same mutationId is safe.
const ReasonStorage = "storage error, safe to retry"

// Scope filters the candidate set of a pull before pagination.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeRecent   Scope = "recent"
	ScopeAssigned Scope = "assigned"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeAll, ScopeRecent, ScopeAssigned:
		return true
	}
	return false
}

// Page size bounds. Oversized requests are capped, not rejected.
const (
	DefaultPageSize = 500
	MaxPageSize     = 500
)

var (
	// ErrUnknownEntityType means the request routed to an entity type no
	// adapter is registered for.
	ErrUnknownEntityType = errors.New("unknown entity type")
	// ErrOwnership marks cross-tenant access, including cursors replayed
	// by a different account than they were issued to.
	ErrOwnership = errors.New("record owned by another account")
	// ErrRefNotFound marks a payload referencing a record that does not
	// exist in the caller's account.
	ErrRefNotFound = errors.New("referenced record not found")
	// ErrBadPayload marks data that cannot be applied to the entity's
	// schema. Deterministic, so it rejects rather than asking for a
	// retry.
	ErrBadPayload = errors.New("invalid data")
	// ErrBadCursor marks a cursor that cannot be decoded or that was
	// issued for a different entity type.
	ErrBadCursor = errors.New("invalid cursor")
	// ErrBadScope marks a scope value outside all|recent|assigned.
	ErrBadScope = errors.New("invalid scope")
)

// Mutation is a client-originated change intent. MutationID doubles as
// the idempotency key; EntityID is client-assigned for creates so records
// can be minted offline.
type Mutation struct {
	MutationID      string          `json:"mutationId" validate:"required,uuid"`
	EntityType      string          `json:"entityType" validate:"required"`
	Type            string          `json:"type" validate:"required,oneof=create update delete"`
	EntityID        string          `json:"entityId" validate:"required,uuid"`
	Data            json.RawMessage `json:"data,omitempty"`
	ClientUpdatedAt time.Time       `json:"clientUpdatedAt" validate:"required"`
}

// PushResult is the terminal outcome of one mutation. ServerEntity is
// populated on conflict (the authoritative record the client must adopt)
// and on apply (the fresh snapshot carrying the new server updatedAt).
// OriginalStatus is set only on duplicates and carries the replayed
// outcome's status.
type PushResult struct {
	MutationID     string          `json:"mutationId"`
	Status         string          `json:"status"`
	OriginalStatus string          `json:"originalStatus,omitempty"`
	ServerEntity   json.RawMessage `json:"serverEntity,omitempty"`
	Reason         string          `json:"reason,omitempty"`
}

// PullPage is one page of a delta pull. NextCursor is null exactly when
// HasMore is false.
type PullPage struct {
	Data       []json.RawMessage `json:"data"`
	NextCursor *string           `json:"nextCursor"`
	HasMore    bool              `json:"hasMore"`
}

// Position is a point in the total order (updatedAt ASC, id ASC).
type Position struct {
	UpdatedAt time.Time
	ID        string
}

// PageQuery is what an adapter needs to produce one page. Since is a
// lower bound on updatedAt (inclusive, zero means unbounded); After
// resumes strictly past a position. Limit arrives already clamped.
type PageQuery struct {
	UserID string
	Scope  Scope
	Since  time.Time
	After  *Position
	Limit  int
}

// Record is one row of a page: the wire payload plus the key the next
// cursor is built from.
type Record struct {
	ID        string
	UpdatedAt time.Time
	Payload   json.RawMessage
}

// RecordMeta is the slice of a record the push pipeline needs before
// deciding anything: who owns it, when the server last touched it, and
// whether it is a tombstone.
type RecordMeta struct {
	UserID    string
	UpdatedAt time.Time
	Deleted   bool
}

// Adapter is the seam between the generic engine and one entity type's
// storage. Implementations must treat tombstones as existing records:
// Meta and Get see them, Update over one revives it, SoftDelete of one
// re-deletes. Every successful write sets updatedAt to server time.
type Adapter interface {
	EntityType() string
	// Meta returns nil when the record has never existed.
	Meta(ctx context.Context, id string) (*RecordMeta, error)
	// Get returns the full wire payload of the current record.
	Get(ctx context.Context, id string) (json.RawMessage, error)
	// ValidateRefs checks that every foreign key in data resolves inside
	// userID's account, returning ErrOwnership or ErrRefNotFound.
	ValidateRefs(ctx context.Context, userID string, data json.RawMessage) error
	Create(ctx context.Context, userID, id string, data json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, userID, id string, data json.RawMessage) (json.RawMessage, error)
	SoftDelete(ctx context.Context, userID, id string) (json.RawMessage, error)
	// Page returns up to q.Limit records in (updatedAt, id) order and
	// whether the result was truncated.
	Page(ctx context.Context, q PageQuery) ([]Record, bool, error)
}

// Ledger is the idempotency store, scoped per account: equal mutation
// ids from different accounts are distinct entries. Get returns nil when
// the account has not submitted the mutation (or its entry was pruned).
type Ledger interface {
	Get(ctx context.Context, userID, mutationID string) (*PushResult, error)
	Put(ctx context.Context, userID string, m Mutation, res PushResult) error
	// Prune drops entries recorded before the cutoff and reports how
	// many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// TxRunner brackets fn in one storage transaction. The engine uses it to
// commit an entity write and its ledger entry atomically.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
