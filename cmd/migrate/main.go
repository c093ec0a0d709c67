// Migration runner. Fresh databases get the full schema via InitSchema;
// databases created before the item kind renumbering get their member
// rows lifted in place.
package main

import (
	"fmt"

	"fleetdata/config"
	"fleetdata/dao/model"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func connect() *gorm.DB {
	cfg := config.GetConfig()

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		path := cfg.Database.SQLitePath
		if path == "" {
			path = "fleetdata.db"
		}
		dialector = sqlite.Open(path)
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			cfg.Database.Host, cfg.Database.User, cfg.Database.Password,
			cfg.Database.DBName, cfg.Database.Port, cfg.Database.SSLMode,
			cfg.Database.TimeZone)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		panic(fmt.Errorf("connect to database: %w", err))
	}
	return db
}

func main() {
	db := connect()

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			// Renumber dataset member kinds from the legacy zero-based
			// encoding (0=datastream, 1=scene, 2=dataset) to the one-based
			// encoding, where 0 is reserved as invalid.
			ID: "2026021001",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("UPDATE dataset_members SET item_type = item_type + 1").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("UPDATE dataset_members SET item_type = item_type - 1").Error
			},
		},
	})

	// InitSchema runs only on empty databases and marks all migrations
	// applied, so the renumbering never touches freshly created rows.
	m.InitSchema(func(tx *gorm.DB) error {
		return tx.AutoMigrate(model.All()...)
	})

	if err := m.Migrate(); err != nil {
		panic(fmt.Errorf("could not migrate: %w", err))
	}
	fmt.Println("migration complete")
}
