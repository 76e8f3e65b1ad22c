package entities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vantegra/fieldgo/internal/models"
	"github.com/vantegra/fieldgo/internal/sync"
)

// gormAdapter implements sync.Adapter for one record type. The entity
// specifics live in a handful of function fields so all six adapters
// share the storage plumbing.
type gormAdapter struct {
	store *Store
	typ   string
	// blank returns a zero value of the record type.
	blank func() models.Synced
	// check validates a decoded record before it is written. Optional.
	check func(models.Synced) error
	// refs validates foreign keys in a mutation payload. Optional.
	refs func(ctx context.Context, userID string, data json.RawMessage) error
	// scope narrows a page query for the assigned scope. Nil means
	// assigned degrades to all for this type.
	scope func(ctx context.Context, tx *gorm.DB, q sync.PageQuery) *gorm.DB
}

func (a *gormAdapter) EntityType() string { return a.typ }

// Meta reads the ownership and versioning slice of a record, tombstones
// included.
func (a *gormAdapter) Meta(ctx context.Context, id string) (*sync.RecordMeta, error) {
	e := a.blank()
	err := a.store.dbOf(ctx).Unscoped().Take(e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f := e.Sync()
	return &sync.RecordMeta{UserID: f.UserID, UpdatedAt: f.UpdatedAt, Deleted: f.Deleted()}, nil
}

func (a *gormAdapter) Get(ctx context.Context, id string) (json.RawMessage, error) {
	return a.snapshot(a.store.dbOf(ctx), id)
}

func (a *gormAdapter) ValidateRefs(ctx context.Context, userID string, data json.RawMessage) error {
	if a.refs == nil {
		return nil
	}
	return a.refs(ctx, userID, data)
}

// Create inserts a record under the caller's account. Server-owned
// fields in the payload are ignored; the database stamps both timestamps.
func (a *gormAdapter) Create(ctx context.Context, userID, id string, data json.RawMessage) (json.RawMessage, error) {
	e := a.blank()
	if err := decode(data, e); err != nil {
		return nil, err
	}
	f := e.Sync()
	f.ID = id
	f.UserID = userID
	f.CreatedAt = time.Time{}
	f.UpdatedAt = time.Time{}
	f.DeletedAt = gorm.DeletedAt{}
	if err := a.checkRecord(e); err != nil {
		return nil, err
	}
	tx := a.store.dbOf(ctx)
	if err := tx.Create(e).Error; err != nil {
		return nil, err
	}
	return a.snapshot(tx, id)
}

// Update applies data as a partial patch over the current record: fields
// present in the payload replace stored values, absent fields survive.
// Updating a tombstone revives it.
func (a *gormAdapter) Update(ctx context.Context, userID, id string, data json.RawMessage) (json.RawMessage, error) {
	tx := a.store.dbOf(ctx)
	e := a.blank()
	if err := tx.Unscoped().Take(e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	f := e.Sync()
	createdAt := f.CreatedAt
	if err := decode(data, e); err != nil {
		return nil, err
	}
	f.ID = id
	f.UserID = userID
	f.CreatedAt = createdAt
	f.UpdatedAt = time.Time{}
	f.DeletedAt = gorm.DeletedAt{}
	if err := a.checkRecord(e); err != nil {
		return nil, err
	}
	if err := tx.Unscoped().Save(e).Error; err != nil {
		return nil, err
	}
	return a.snapshot(tx, id)
}

// SoftDelete tombstones a record, advancing updatedAt with the same
// stamp so the deletion flows through pulls. Deleting a tombstone
// refreshes it.
func (a *gormAdapter) SoftDelete(ctx context.Context, userID, id string) (json.RawMessage, error) {
	tx := a.store.dbOf(ctx)
	now := tx.NowFunc()
	res := tx.Unscoped().Model(a.blank()).Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": now, "updated_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return a.snapshot(tx, id)
}

// Page returns one page in (updatedAt, id) order, reading one row past
// the limit to learn whether more remain.
func (a *gormAdapter) Page(ctx context.Context, q sync.PageQuery) ([]sync.Record, bool, error) {
	db := a.store.dbOf(ctx)
	tx := db.Unscoped().Model(a.blank()).Where("user_id = ?", q.UserID)
	if q.Scope == sync.ScopeAssigned && a.scope != nil {
		tx = a.scope(ctx, tx, q)
	}
	if !q.Since.IsZero() {
		tx = tx.Where("updated_at >= ?", q.Since)
	}
	if q.After != nil {
		tx = tx.Where("updated_at > ? OR (updated_at = ? AND id > ?)",
			q.After.UpdatedAt, q.After.UpdatedAt, q.After.ID)
	}

	rows, err := tx.Order("updated_at ASC, id ASC").Limit(q.Limit + 1).Rows()
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	records := make([]sync.Record, 0, q.Limit)
	for rows.Next() {
		e := a.blank()
		if err := db.ScanRows(rows, e); err != nil {
			return nil, false, err
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, false, err
		}
		f := e.Sync()
		records = append(records, sync.Record{ID: f.ID, UpdatedAt: f.UpdatedAt, Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(records) > q.Limit
	if hasMore {
		records = records[:q.Limit]
	}
	return records, hasMore, nil
}

// snapshot re-reads the stored row so returned payloads carry the
// server-stamped fields.
func (a *gormAdapter) snapshot(tx *gorm.DB, id string) (json.RawMessage, error) {
	e := a.blank()
	if err := tx.Unscoped().Take(e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

func (a *gormAdapter) checkRecord(e models.Synced) error {
	if a.check == nil {
		return nil
	}
	return a.check(e)
}

func decode(data json.RawMessage, dst models.Synced) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s", sync.ErrBadPayload, err)
	}
	return nil
}
