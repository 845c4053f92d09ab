// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tradebridge/marketplace-backend/internal/config"
	"github.com/tradebridge/marketplace-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger. TranslateError maps driver errors onto gorm's
	// sentinels; the checkout idempotency race depends on ErrDuplicatedKey.
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		}
	} else {
		gormConfig = &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Info),
			TranslateError: true,
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.Company{},
		&models.Listing{},
		&models.Contract{},
		&models.CartLine{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Shipment{},
		&models.CommissionPlan{},
		&models.CommissionRule{},
		&models.LedgerEntry{},
		&models.AdminSettings{},
		&models.AuditLog{},
		&models.AdminNotification{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Listing indexes
		"CREATE INDEX IF NOT EXISTS idx_listings_seller_status ON listings(seller_company_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_listings_category_brand ON listings(category, brand)",

		// Contract indexes
		"CREATE INDEX IF NOT EXISTS idx_contracts_parties_product ON contracts(buyer_company_id, seller_company_id, product_id)",
		"CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_buyer_status ON orders(buyer_company_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_seller_status ON orders(seller_company_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Payment indexes
		"CREATE INDEX IF NOT EXISTS idx_payments_status_payout ON payments(status, payout_status)",
		"CREATE INDEX IF NOT EXISTS idx_payments_checkout_key ON payments(checkout_key)",

		// Shipment indexes
		"CREATE INDEX IF NOT EXISTS idx_shipments_order_status ON shipments(network_order_id, status)",

		// Commission indexes
		"CREATE INDEX IF NOT EXISTS idx_commission_plans_scope_default ON commission_plans(scope, is_default, active)",
		"CREATE INDEX IF NOT EXISTS idx_commission_rules_plan_priority ON commission_rules(plan_id, priority DESC)",

		// Ledger indexes
		"CREATE INDEX IF NOT EXISTS idx_ledger_entries_seller ON ledger_entries(seller_company_id, created_at DESC)",

		// Admin indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_admin_notifications_status ON admin_notifications(status, priority)",
		"CREATE INDEX IF NOT EXISTS idx_admin_settings_category ON admin_settings(category, key)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create the global default commission plan if none exists
	var planCount int64
	db.Model(&models.CommissionPlan{}).
		Where("scope = ? AND is_default = ? AND active = ?", models.PlanScopeGlobal, true, true).
		Count(&planCount)

	if planCount == 0 {
		plan := &models.CommissionPlan{
			Name:      "Global Default",
			Scope:     models.PlanScopeGlobal,
			IsDefault: true,
			Active:    true,
		}

		if err := db.Create(plan).Error; err != nil {
			return fmt.Errorf("failed to create default commission plan: %w", err)
		}

		defaultRule := &models.CommissionRule{
			PlanID:         plan.ID,
			MatchType:      models.RuleMatchDefault,
			RatePercentage: 5.0,
			FixedFee:       0,
			Priority:       0,
		}

		if err := db.Create(defaultRule).Error; err != nil {
			return fmt.Errorf("failed to create default commission rule: %w", err)
		}

		log.Println("Default commission plan created successfully")
	}

	// Create default platform settings
	defaultSettings := []models.AdminSettings{
		{
			Category:    "settlement",
			Key:         "escrow_hold_days_default",
			Value:       models.JSONB{"value": 7},
			DataType:    "integer",
			Description: "Escrow hold days applied when no trust tier is known",
		},
		{
			Category:    "settlement",
			Key:         "force_release_requires_reason",
			Value:       models.JSONB{"value": true},
			DataType:    "boolean",
			Description: "Force-release demands a non-empty reason and a typed confirmation",
		},
		{
			Category:    "checkout",
			Key:         "max_cart_lines",
			Value:       models.JSONB{"value": 100},
			DataType:    "integer",
			Description: "Maximum number of cart lines per buyer company",
		},
	}

	for _, setting := range defaultSettings {
		var count int64
		db.Model(&models.AdminSettings{}).Where("category = ? AND key = ?", setting.Category, setting.Key).Count(&count)

		if count == 0 {
			if err := db.Create(&setting).Error; err != nil {
				log.Printf("Warning: Failed to create setting %s.%s: %v", setting.Category, setting.Key, err)
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
