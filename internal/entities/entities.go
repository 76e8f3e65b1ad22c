package entities

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/vantegra/fieldgo/internal/models"
	"github.com/vantegra/fieldgo/internal/sync"
)

// refFields is the slice of a mutation payload the foreign key checks
// read. Pointers distinguish an absent field from an empty one, so a
// partial patch that never mentions a reference skips its check.
type refFields struct {
	ClientID    *string `json:"clientId"`
	QuoteID     *string `json:"quoteId"`
	WorkOrderID *string `json:"workOrderId"`
	CategoryID  *string `json:"categoryId"`
}

func parseRefs(data json.RawMessage) (*refFields, error) {
	var r refFields
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %s", sync.ErrBadPayload, err)
	}
	return &r, nil
}

func set(p *string) bool { return p != nil && *p != "" }

// Clients syncs customer records. The assigned scope narrows to clients
// having a work order assigned to the caller.
func (s *Store) Clients() sync.Adapter {
	return &gormAdapter{
		store: s,
		typ:   TypeClients,
		blank: func() models.Synced { return &models.Client{} },
		scope: func(ctx context.Context, tx *gorm.DB, q sync.PageQuery) *gorm.DB {
			sub := s.dbOf(ctx).Table("work_orders").Select("client_id").Where("assigned_to = ?", q.UserID)
			return tx.Where("id IN (?)", sub)
		},
	}
}

// Quotes syncs estimates. The assigned scope follows the client set.
func (s *Store) Quotes() sync.Adapter {
	return &gormAdapter{
		store: s,
		typ:   TypeQuotes,
		blank: func() models.Synced { return &models.Quote{} },
		check: func(e models.Synced) error {
			if e.(*models.Quote).ClientID == "" {
				return fmt.Errorf("%w: clientId is required", sync.ErrBadPayload)
			}
			return nil
		},
		refs: func(ctx context.Context, userID string, data json.RawMessage) error {
			r, err := parseRefs(data)
			if err != nil {
				return err
			}
			if set(r.ClientID) {
				return s.refOwned(ctx, "clients", "clientId", userID, *r.ClientID)
			}
			return nil
		},
		scope: func(ctx context.Context, tx *gorm.DB, q sync.PageQuery) *gorm.DB {
			sub := s.dbOf(ctx).Table("work_orders").Select("client_id").Where("assigned_to = ?", q.UserID)
			return tx.Where("client_id IN (?)", sub)
		},
	}
}

// WorkOrders syncs jobs. assignedTo carries the technician user id and
// drives the assigned scope directly.
func (s *Store) WorkOrders() sync.Adapter {
	return &gormAdapter{
		store: s,
		typ:   TypeWorkOrders,
		blank: func() models.Synced { return &models.WorkOrder{} },
		check: func(e models.Synced) error {
			if e.(*models.WorkOrder).ClientID == "" {
				return fmt.Errorf("%w: clientId is required", sync.ErrBadPayload)
			}
			return nil
		},
		refs: func(ctx context.Context, userID string, data json.RawMessage) error {
			r, err := parseRefs(data)
			if err != nil {
				return err
			}
			if set(r.ClientID) {
				if err := s.refOwned(ctx, "clients", "clientId", userID, *r.ClientID); err != nil {
					return err
				}
			}
			if set(r.QuoteID) {
				return s.refOwned(ctx, "quotes", "quoteId", userID, *r.QuoteID)
			}
			return nil
		},
		scope: func(ctx context.Context, tx *gorm.DB, q sync.PageQuery) *gorm.DB {
			return tx.Where("assigned_to = ?", q.UserID)
		},
	}
}

// Invoices syncs billing records. The assigned scope follows the
// work-order set.
func (s *Store) Invoices() sync.Adapter {
	return &gormAdapter{
		store: s,
		typ:   TypeInvoices,
		blank: func() models.Synced { return &models.Invoice{} },
		check: func(e models.Synced) error {
			if e.(*models.Invoice).ClientID == "" {
				return fmt.Errorf("%w: clientId is required", sync.ErrBadPayload)
			}
			return nil
		},
		refs: func(ctx context.Context, userID string, data json.RawMessage) error {
			r, err := parseRefs(data)
			if err != nil {
				return err
			}
			if set(r.ClientID) {
				if err := s.refOwned(ctx, "clients", "clientId", userID, *r.ClientID); err != nil {
					return err
				}
			}
			if set(r.WorkOrderID) {
				return s.refOwned(ctx, "work_orders", "workOrderId", userID, *r.WorkOrderID)
			}
			return nil
		},
		scope: func(ctx context.Context, tx *gorm.DB, q sync.PageQuery) *gorm.DB {
			sub := s.dbOf(ctx).Table("work_orders").Select("id").Where("assigned_to = ?", q.UserID)
			return tx.Where("work_order_id IN (?)", sub)
		},
	}
}

// Items syncs the price book. Catalog data is account-global, so the
// assigned scope degrades to all.
func (s *Store) Items() sync.Adapter {
	return &gormAdapter{
		store: s,
		typ:   TypeItems,
		blank: func() models.Synced { return &models.Item{} },
		refs: func(ctx context.Context, userID string, data json.RawMessage) error {
			r, err := parseRefs(data)
			if err != nil {
				return err
			}
			if set(r.CategoryID) {
				return s.refOwned(ctx, "categories", "categoryId", userID, *r.CategoryID)
			}
			return nil
		},
	}
}

// Categories syncs item groupings. Assigned degrades to all.
func (s *Store) Categories() sync.Adapter {
	return &gormAdapter{
		store: s,
		typ:   TypeCategories,
		blank: func() models.Synced { return &models.Category{} },
	}
}
