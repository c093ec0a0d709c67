package query

import (
	"fmt"
	"time"

	"fleetdata/config"
	"fleetdata/dao/model"
	"fleetdata/logutils"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB opens the configured database (postgres or sqlite) and sets up
// the connection pool. TranslateError is enabled so unique-constraint
// violations surface as gorm.ErrDuplicatedKey regardless of driver.
func InitDB() error {
	dbConfig := config.GetConfig()

	var dialector gorm.Dialector
	switch dbConfig.Database.Driver {
	case "sqlite":
		path := dbConfig.Database.SQLitePath
		if path == "" {
			path = "fleetdata.db"
		}
		dialector = sqlite.Open(path)
	case "", "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			dbConfig.Database.Host, dbConfig.Database.User, dbConfig.Database.Password,
			dbConfig.Database.DBName, dbConfig.Database.Port, dbConfig.Database.SSLMode,
			dbConfig.Database.TimeZone)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver %q", dbConfig.Database.Driver)
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return err
	}
	maxIdleConns := 5
	maxOpenConns := 10
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if dbConfig.Database.AutoMigrate {
		if err := DB.AutoMigrate(model.All()...); err != nil {
			return err
		}
		logutils.Log.Info("schema auto-migration complete")
	}

	logutils.Log.Infof("database init success (driver=%s)", orDefault(dbConfig.Database.Driver, "postgres"))
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
