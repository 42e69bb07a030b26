package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/oondels/emergency-gate-monitoring/config"
	"github.com/oondels/emergency-gate-monitoring/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Door{},
		&model.DoorStatus{},
		&model.PushSubscription{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// SeedDoors upserts the configured doors and gives every door with an empty
// timeline a baseline closed record. Reports against a door are rejected
// until such a baseline exists, so seeding is what makes a door usable.
func SeedDoors(db *gorm.DB, doors []config.DoorConfig) error {
	if len(doors) == 0 {
		return nil
	}

	rows := make([]model.Door, len(doors))
	for i, d := range doors {
		rows[i] = model.Door{ID: d.ID, Name: d.Name}
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&rows).Error; err != nil {
		return fmt.Errorf("upsert doors failed: %w", err)
	}

	for _, d := range doors {
		var count int64
		if err := db.Model(&model.DoorStatus{}).Where("door_id = ?", d.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("count statuses for door %s failed: %w", d.ID, err)
		}
		if count > 0 {
			continue
		}
		baseline := model.DoorStatus{DoorID: d.ID, Open: false, RecordedAt: time.Now()}
		if err := db.Create(&baseline).Error; err != nil {
			return fmt.Errorf("seed baseline status for door %s failed: %w", d.ID, err)
		}
		log.Printf("Seeded baseline closed record for door %s", d.ID)
	}
	return nil
}
