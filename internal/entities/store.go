package entities

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vantegra/fieldgo/internal/database"
	"github.com/vantegra/fieldgo/internal/models"
	"github.com/vantegra/fieldgo/internal/sync"
)

// Entity type names as they appear in URLs, cursors and the ledger.
const (
	TypeClients    = "clients"
	TypeQuotes     = "quotes"
	TypeWorkOrders = "work_orders"
	TypeInvoices   = "invoices"
	TypeItems      = "items"
	TypeCategories = "categories"
)

// Store hands the sync engine its storage: one adapter per record type,
// the mutation ledger, and the transaction bracket that joins them.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// txKey carries an open transaction through a context so adapter calls
// made inside InTx land on it.
type txKey struct{}

// InTx runs fn inside one database transaction. A call made while a
// transaction is already in flight joins it.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *Store) dbOf(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

// Registry returns all entity adapters wired for the sync engine.
func (s *Store) Registry() *sync.Registry {
	r := sync.NewRegistry()
	r.Register(s.Clients())
	r.Register(s.Quotes())
	r.Register(s.WorkOrders())
	r.Register(s.Invoices())
	r.Register(s.Items())
	r.Register(s.Categories())
	return r
}

// PurgeTombstones hard-deletes soft-deleted records older than cutoff
// across every synced table. A client offline longer than the purge
// window misses the deletion and has to full-resync.
func (s *Store) PurgeTombstones(ctx context.Context, cutoff time.Time) (int64, error) {
	blanks := []models.Synced{
		&models.Invoice{},
		&models.WorkOrder{},
		&models.Quote{},
		&models.Client{},
		&models.Item{},
		&models.Category{},
	}
	var total int64
	for _, blank := range blanks {
		res := s.dbOf(ctx).Unscoped().
			Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
			Delete(blank)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

// refOwned checks that a referenced record exists and belongs to userID.
// Tombstones count as existing, so an offline edit referencing a record
// deleted in the meantime still lands instead of stranding on the device.
func (s *Store) refOwned(ctx context.Context, table, field, userID, id string) error {
	var owners []string
	err := s.dbOf(ctx).Table(table).Where("id = ?", id).Limit(1).Pluck("user_id", &owners).Error
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		return fmt.Errorf("%w: %s %q", sync.ErrRefNotFound, field, id)
	}
	if owners[0] != userID {
		return fmt.Errorf("%w: %s", sync.ErrOwnership, field)
	}
	return nil
}
