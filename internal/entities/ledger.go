package entities

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vantegra/fieldgo/internal/models"
	"github.com/vantegra/fieldgo/internal/sync"
)

// MutationLedger stores push outcomes keyed by account and mutation id,
// backing the engine's replay detection. The account is part of the key:
// a mutation id reused by another tenant is a first submission there, not
// a replay, so no tenant can read another's stored results.
type MutationLedger struct {
	store *Store
}

func (s *Store) Ledger() *MutationLedger {
	return &MutationLedger{store: s}
}

// Get returns the account's recorded outcome, or nil when this account
// has never submitted the mutation or its entry aged out.
func (l *MutationLedger) Get(ctx context.Context, userID, mutationID string) (*sync.PushResult, error) {
	var rec models.MutationRecord
	err := l.store.dbOf(ctx).Take(&rec, "mutation_id = ? AND user_id = ?", mutationID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res := sync.PushResult{
		MutationID: rec.MutationID,
		Status:     rec.Status,
		Reason:     rec.Reason,
	}
	if len(rec.ServerEntity) > 0 {
		res.ServerEntity = json.RawMessage(rec.ServerEntity)
	}
	return &res, nil
}

func (l *MutationLedger) Put(ctx context.Context, userID string, m sync.Mutation, res sync.PushResult) error {
	rec := models.MutationRecord{
		MutationID:   m.MutationID,
		UserID:       userID,
		EntityType:   m.EntityType,
		EntityID:     m.EntityID,
		Status:       res.Status,
		Reason:       res.Reason,
		ServerEntity: datatypes.JSON(res.ServerEntity),
	}
	return l.store.dbOf(ctx).Create(&rec).Error
}

// Prune drops ledger entries recorded before cutoff. A retry arriving
// after its entry is gone re-executes, which last-write-wins absorbs.
func (l *MutationLedger) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := l.store.dbOf(ctx).Where("created_at < ?", cutoff).Delete(&models.MutationRecord{})
	return res.RowsAffected, res.Error
}
