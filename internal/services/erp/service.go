package erp

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vantegra/fieldgo/internal/config"
	"github.com/vantegra/fieldgo/internal/database"
	"github.com/vantegra/fieldgo/internal/entities"
	"github.com/vantegra/fieldgo/internal/models"
	"github.com/vantegra/fieldgo/internal/sync"
)

// Service mirrors the Odoo price book into the local catalog. Every import
// goes through the entity adapters, so imported rows get a fresh updatedAt
// and reach mobile clients on their next pull like any other edit.
type Service struct {
	client *Client
	db     *database.DB
	store  *entities.Store
	engine *sync.Engine
	cfg    config.ERPConfig
	stop   chan struct{}

	// lastSync is the write_date high-water mark. It is held in memory;
	// a restart re-imports the full catalog, which the upserts absorb.
	lastSync time.Time
}

// NewService creates the price-book import service
func NewService(db *database.DB, store *entities.Store, engine *sync.Engine, cfg config.ERPConfig) *Service {
	return &Service{
		client: NewClient(cfg.URL, cfg.Database, cfg.Username, cfg.Password),
		db:     db,
		store:  store,
		engine: engine,
		cfg:    cfg,
		stop:   make(chan struct{}),
	}
}

// Start begins the background import loop
func (s *Service) Start() {
	if s.cfg.URL == "" {
		log.Println("ERP import disabled: ODOO_URL not configured")
		return
	}

	go func() {
		log.Println("📡 ERP Import Service started")

		// Authenticate first
		if _, err := s.client.Authenticate(); err != nil {
			log.Printf("❌ ERP authentication failed: %v", err)
			return
		}

		// Initial import delay
		time.Sleep(5 * time.Second)
		s.runImport()

		interval := time.Duration(s.cfg.IntervalMinutes) * time.Minute
		if s.cfg.IntervalMinutes <= 0 {
			interval = 30 * time.Minute
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runImport()
			case <-s.stop:
				log.Println("🛑 ERP Import Service stopped")
				return
			}
		}
	}()
}

// Stop halts the service
func (s *Service) Stop() {
	close(s.stop)
}

// runImport pulls categories first so products can resolve their category.
func (s *Service) runImport() {
	log.Println("🔄 ERP: Starting catalog import...")

	ownerID, err := s.catalogOwner()
	if err != nil {
		log.Printf("❌ ERP: no admin account to own the catalog: %v", err)
		return
	}

	ctx := context.Background()
	since := s.lastSync
	if since.IsZero() {
		since = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	mark := s.importCategories(ctx, ownerID, since)
	if m := s.importItems(ctx, ownerID, since); m.After(mark) {
		mark = m
	}
	if mark.After(s.lastSync) {
		s.lastSync = mark
	}

	log.Println("✅ ERP: Catalog import completed")
}

// catalogOwner picks the account that owns imported rows. The price book
// lands in the oldest admin account.
func (s *Service) catalogOwner() (string, error) {
	var user models.User
	err := s.db.Where("role = ?", models.RoleAdmin).Order("created_at ASC").First(&user).Error
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (s *Service) importCategories(ctx context.Context, ownerID string, since time.Time) time.Time {
	log.Println("🗂 ERP: Importing categories...")

	domain := []interface{}{
		[]interface{}{"write_date", ">", since.Format(odooTimeLayout)},
	}

	var categories []erpCategory
	err := s.client.SearchRead("product.category", domain, []string{
		"name", "write_date",
	}, 1000, 0, &categories)
	if err != nil {
		log.Printf("❌ ERP Import Error (Categories): %v", err)
		return since
	}
	if len(categories) == 0 {
		return since
	}

	adapter, err := s.engine.Adapter(entities.TypeCategories)
	if err != nil {
		log.Printf("❌ ERP: %v", err)
		return since
	}

	mark := since
	count := 0
	for _, c := range categories {
		payload, err := json.Marshal(map[string]interface{}{
			"name":  c.Name.String(),
			"erpId": c.ID,
		})
		if err != nil {
			continue
		}
		if err := s.upsert(ctx, adapter, ownerID, &models.Category{}, c.ID, payload); err != nil {
			log.Printf("Failed to save category %d: %v", c.ID, err)
			continue
		}
		count++
		if c.WriteDate.After(mark) {
			mark = c.WriteDate.Time
		}
	}

	log.Printf("✅ ERP: Updated %d categories", count)
	return mark
}

func (s *Service) importItems(ctx context.Context, ownerID string, since time.Time) time.Time {
	log.Println("📦 ERP: Importing products...")

	domain := []interface{}{
		[]interface{}{"write_date", ">", since.Format(odooTimeLayout)},
	}

	var products []erpProduct
	err := s.client.SearchRead("product.product", domain, []string{
		"default_code", "name", "description_sale", "list_price", "categ_id", "active", "write_date",
	}, 1000, 0, &products)
	if err != nil {
		log.Printf("❌ ERP Import Error (Products): %v", err)
		return since
	}
	if len(products) == 0 {
		return since
	}

	adapter, err := s.engine.Adapter(entities.TypeItems)
	if err != nil {
		log.Printf("❌ ERP: %v", err)
		return since
	}

	categories := s.categoryMap(ctx, ownerID)

	mark := since
	count := 0
	for _, p := range products {
		fields := map[string]interface{}{
			"sku":         p.DefaultCode.String(),
			"name":        p.Name.String(),
			"description": p.Description.String(),
			"unitPrice":   p.ListPrice,
			"active":      p.Active,
			"erpId":       p.ID,
		}
		if localID, ok := categories[p.Category.ID]; ok {
			fields["categoryId"] = localID
		}
		payload, err := json.Marshal(fields)
		if err != nil {
			continue
		}
		if err := s.upsert(ctx, adapter, ownerID, &models.Item{}, p.ID, payload); err != nil {
			log.Printf("Failed to save product %d: %v", p.ID, err)
			continue
		}
		count++
		if p.WriteDate.After(mark) {
			mark = p.WriteDate.Time
		}
	}

	log.Printf("✅ ERP: Updated %d products", count)
	return mark
}

// categoryMap resolves Odoo category ids to local category ids.
func (s *Service) categoryMap(ctx context.Context, ownerID string) map[int64]string {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Where("user_id = ? AND erp_id > 0", ownerID).Find(&categories).Error; err != nil {
		log.Printf("⚠️  ERP: category lookup failed: %v", err)
		return nil
	}
	m := make(map[int64]string, len(categories))
	for _, c := range categories {
		m[c.ErpID] = c.ID
	}
	return m
}

// upsert routes one imported row through the entity adapter, creating or
// patching the local record carrying the same erp_id.
func (s *Service) upsert(ctx context.Context, adapter sync.Adapter, ownerID string, blank models.Synced, erpID int64, payload []byte) error {
	var ids []string
	err := s.db.WithContext(ctx).Model(blank).Unscoped().
		Where("erp_id = ? AND user_id = ?", erpID, ownerID).
		Limit(1).Pluck("id", &ids).Error
	if err != nil {
		return err
	}

	return s.store.InTx(ctx, func(ctx context.Context) error {
		if len(ids) == 0 {
			_, err := adapter.Create(ctx, ownerID, uuid.NewString(), payload)
			return err
		}
		_, err := adapter.Update(ctx, ownerID, ids[0], payload)
		return err
	})
}
