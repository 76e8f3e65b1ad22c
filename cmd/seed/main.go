package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/vantegra/fieldgo/internal/config"
	"github.com/vantegra/fieldgo/internal/database"
	"github.com/vantegra/fieldgo/internal/models"
	"github.com/vantegra/fieldgo/internal/utils"
)

// Seeds a demo tenant: one admin account with a small price book, three
// clients and a quote -> work order -> invoice paper trail. Passwords are
// "fieldgo-demo" for both accounts.
func main() {
	fmt.Println("🌱 FieldGo Demo Data Seeder")
	fmt.Println(strings.Repeat("=", 60))

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")
	fmt.Println()

	// Run migrations first
	fmt.Println("🔨 Running database migrations...")
	err = db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Category{},
		&models.Item{},
		&models.Quote{},
		&models.WorkOrder{},
		&models.Invoice{},
		&models.MutationRecord{},
	)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")
	fmt.Println()

	// Check if data already exists
	var userCount int64
	db.Model(&models.User{}).Count(&userCount)
	if userCount > 0 {
		fmt.Printf("⚠️  Database already has %d users. Clear it first? (y/N): ", userCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}

		// Clear existing data
		fmt.Println("🗑️  Clearing existing data...")
		db.Exec("TRUNCATE TABLE sync_mutations CASCADE")
		db.Exec("TRUNCATE TABLE invoices CASCADE")
		db.Exec("TRUNCATE TABLE work_orders CASCADE")
		db.Exec("TRUNCATE TABLE quotes CASCADE")
		db.Exec("TRUNCATE TABLE items CASCADE")
		db.Exec("TRUNCATE TABLE categories CASCADE")
		db.Exec("TRUNCATE TABLE clients CASCADE")
		db.Exec("TRUNCATE TABLE users CASCADE")
		fmt.Println("✅ Data cleared")
	}

	fmt.Println()
	fmt.Println("📦 Creating demo data...")
	fmt.Println()

	passwordHash, err := utils.HashPassword("fieldgo-demo")
	if err != nil {
		log.Fatalf("❌ Failed to hash demo password: %v", err)
	}

	// 1. Create Users
	fmt.Println("👤 Creating users...")
	admin := models.User{
		Email:        "admin@fieldgo.dev",
		PasswordHash: passwordHash,
		Name:         "Dana Admin",
		Role:         models.RoleAdmin,
	}
	tech := models.User{
		Email:        "tech@fieldgo.dev",
		PasswordHash: passwordHash,
		Name:         "Sam Tech",
		Role:         models.RoleTech,
	}
	for _, u := range []*models.User{&admin, &tech} {
		if err := db.Create(u).Error; err != nil {
			log.Fatalf("❌ Failed to create user %s: %v", u.Email, err)
		}
		fmt.Printf("   ✓ Created user: %s (%s)\n", u.Email, u.Role)
	}
	fmt.Println()

	// 2. Create Categories
	fmt.Println("🗂  Creating categories...")
	categories := []models.Category{
		{SyncFields: owned(admin.ID), Name: "Labor", Position: 1},
		{SyncFields: owned(admin.ID), Name: "Parts", Position: 2},
		{SyncFields: owned(admin.ID), Name: "Consumables", Position: 3},
	}
	for i := range categories {
		if err := db.Create(&categories[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create category %s: %v", categories[i].Name, err)
		} else {
			fmt.Printf("   ✓ Created category: %s\n", categories[i].Name)
		}
	}
	labor, parts, consumables := categories[0].ID, categories[1].ID, categories[2].ID
	fmt.Printf("✅ Created %d categories\n\n", len(categories))

	// 3. Create Items
	fmt.Println("🛠  Creating price-book items...")
	items := []models.Item{
		{SyncFields: owned(admin.ID), CategoryID: &labor, SKU: "LAB-STD", Name: "Standard labor", Unit: "h", UnitPrice: 85.00},
		{SyncFields: owned(admin.ID), CategoryID: &labor, SKU: "LAB-EMG", Name: "Emergency call-out", Unit: "h", UnitPrice: 140.00},
		{SyncFields: owned(admin.ID), CategoryID: &parts, SKU: "PMP-075", Name: "Circulation pump 0.75kW", UnitPrice: 420.00},
		{SyncFields: owned(admin.ID), CategoryID: &parts, SKU: "VLV-022", Name: "Thermostatic valve 22mm", UnitPrice: 36.50},
		{SyncFields: owned(admin.ID), CategoryID: &consumables, SKU: "SEAL-KIT", Name: "Seal and gasket kit", UnitPrice: 12.90},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create item %s: %v", items[i].Name, err)
		} else {
			fmt.Printf("   ✓ Created item: [%s] %s\n", items[i].SKU, items[i].Name)
		}
	}
	fmt.Printf("✅ Created %d items\n\n", len(items))

	// 4. Create Clients
	fmt.Println("🏠 Creating clients...")
	clients := []models.Client{
		{SyncFields: owned(admin.ID), Name: "Hartmann Facility GmbH", Email: "office@hartmann-facility.de", Phone: "+49 30 5550 1020", Address: "Gewerbering 14", City: "Berlin", Zip: "12489"},
		{SyncFields: owned(admin.ID), Name: "Cafe Amsel", Email: "post@cafe-amsel.de", Phone: "+49 30 5550 3344", Address: "Lindenstr. 8", City: "Berlin", Zip: "10969", Notes: "Access through the courtyard, ring twice."},
		{SyncFields: owned(admin.ID), Name: "Dr. Weiss Dental Practice", Email: "praxis@dr-weiss.de", Phone: "+49 30 5550 7788", Address: "Kantstr. 101", City: "Berlin", Zip: "10627"},
	}
	for i := range clients {
		if err := db.Create(&clients[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create client %s: %v", clients[i].Name, err)
		} else {
			fmt.Printf("   ✓ Created client: %s\n", clients[i].Name)
		}
	}
	hartmann, amsel := clients[0].ID, clients[1].ID
	fmt.Printf("✅ Created %d clients\n\n", len(clients))

	// 5. Create Quotes
	fmt.Println("📄 Creating quotes...")
	pumpLines := []models.LineItem{
		{ItemID: &items[2].ID, Description: "Circulation pump 0.75kW", Quantity: 1, UnitPrice: 420.00, Total: 420.00},
		{ItemID: &items[0].ID, Description: "Standard labor", Quantity: 3, UnitPrice: 85.00, Total: 255.00},
		{ItemID: &items[4].ID, Description: "Seal and gasket kit", Quantity: 1, UnitPrice: 12.90, Total: 12.90},
	}
	quotes := []models.Quote{
		{
			SyncFields: owned(admin.ID),
			ClientID:   hartmann,
			Number:     "Q-2026-001",
			Status:     models.QuoteAccepted,
			Lines:      linesJSON(pumpLines),
			Subtotal:   687.90,
			TaxRate:    19,
			Total:      818.60,
			ValidUntil: timePtr(time.Now().AddDate(0, 1, 0)),
			Notes:      "Replacement of the failed circulation pump in the boiler room.",
		},
		{
			SyncFields: owned(admin.ID),
			ClientID:   amsel,
			Number:     "Q-2026-002",
			Status:     models.QuoteSent,
			Lines: linesJSON([]models.LineItem{
				{ItemID: &items[3].ID, Description: "Thermostatic valve 22mm", Quantity: 4, UnitPrice: 36.50, Total: 146.00},
				{ItemID: &items[0].ID, Description: "Standard labor", Quantity: 2, UnitPrice: 85.00, Total: 170.00},
			}),
			Subtotal:   316.00,
			TaxRate:    19,
			Total:      376.04,
			ValidUntil: timePtr(time.Now().AddDate(0, 0, 14)),
		},
	}
	for i := range quotes {
		if err := db.Create(&quotes[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create quote %s: %v", quotes[i].Number, err)
		} else {
			fmt.Printf("   ✓ Created quote: %s (%s)\n", quotes[i].Number, quotes[i].Status)
		}
	}
	fmt.Printf("✅ Created %d quotes\n\n", len(quotes))

	// 6. Create Work Orders
	fmt.Println("🔧 Creating work orders...")
	workOrders := []models.WorkOrder{
		{
			SyncFields:  owned(admin.ID),
			ClientID:    hartmann,
			QuoteID:     &quotes[0].ID,
			Number:      "WO-2026-001",
			Title:       "Replace circulation pump",
			Description: "Swap the failed 0.75kW pump, flush the loop, check the pressure vessel.",
			Status:      models.WorkOrderDone,
			ScheduledAt: timePtr(time.Now().AddDate(0, 0, -3)),
			CompletedAt: timePtr(time.Now().AddDate(0, 0, -3)),
			AssignedTo:  &admin.ID,
		},
		{
			SyncFields:  owned(admin.ID),
			ClientID:    amsel,
			Number:      "WO-2026-002",
			Title:       "Radiator valves front room",
			Description: "Replace four seized thermostatic valves.",
			Status:      models.WorkOrderScheduled,
			ScheduledAt: timePtr(time.Now().AddDate(0, 0, 5)),
		},
	}
	for i := range workOrders {
		if err := db.Create(&workOrders[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create work order %s: %v", workOrders[i].Number, err)
		} else {
			fmt.Printf("   ✓ Created work order: %s - %s\n", workOrders[i].Number, workOrders[i].Title)
		}
	}
	fmt.Printf("✅ Created %d work orders\n\n", len(workOrders))

	// 7. Create Invoices
	fmt.Println("💶 Creating invoices...")
	invoices := []models.Invoice{
		{
			SyncFields:  owned(admin.ID),
			ClientID:    hartmann,
			WorkOrderID: &workOrders[0].ID,
			Number:      "INV-2026-001",
			Status:      models.InvoiceSent,
			Lines:       linesJSON(pumpLines),
			Subtotal:    687.90,
			TaxRate:     19,
			Total:       818.60,
			DueAt:       timePtr(time.Now().AddDate(0, 0, 14)),
		},
	}
	for i := range invoices {
		if err := db.Create(&invoices[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create invoice %s: %v", invoices[i].Number, err)
		} else {
			fmt.Printf("   ✓ Created invoice: %s (%s)\n", invoices[i].Number, invoices[i].Status)
		}
	}
	fmt.Printf("✅ Created %d invoices\n\n", len(invoices))

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("✅ Demo data ready")
	fmt.Println()
	fmt.Println("   Login:    admin@fieldgo.dev / fieldgo-demo")
	fmt.Println("             tech@fieldgo.dev  / fieldgo-demo")
}

func owned(userID string) models.SyncFields {
	return models.SyncFields{UserID: userID}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func linesJSON(lines []models.LineItem) datatypes.JSON {
	b, err := json.Marshal(lines)
	if err != nil {
		log.Fatalf("❌ Failed to marshal line items: %v", err)
	}
	return datatypes.JSON(b)
}
