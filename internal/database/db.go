package database

import (
	"log"

	"traceflow-backend/internal/config"
	"traceflow-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	// Batch may not be deleted while transfers reference it, and an
	// organization may not be deleted while it still owns batches.
	// AutoMigrate defaults these to no action; make the intent explicit.
	DB.Exec("ALTER TABLE batches DROP CONSTRAINT IF EXISTS fk_batches_organization")
	DB.Exec(`ALTER TABLE batches
		ADD CONSTRAINT fk_batches_organization
		FOREIGN KEY (organization_id) REFERENCES organizations(id) ON DELETE RESTRICT`)
	DB.Exec("ALTER TABLE transfers DROP CONSTRAINT IF EXISTS fk_transfers_batch")
	DB.Exec(`ALTER TABLE transfers
		ADD CONSTRAINT fk_transfers_batch
		FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE RESTRICT`)

	log.Println("Database connection ready. Migration completed.")
}

// Migrate runs schema migration for every entity. Split out so tests can run
// it against their own database handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Organization{},
		&models.ProductionSite{},
		&models.User{},
		&models.Batch{},
		&models.BatchLineage{},
		&models.Transfer{},
		&models.AuditLog{},
	)
}
