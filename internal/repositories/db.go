package repositories

import (
	"fmt"

	"github.com/rohits-web03/mediadrop/internal/config"
	"github.com/rohits-web03/mediadrop/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDatabase opens the SQL database selected by DB_DRIVER and migrates
// the key-value table.
func ConnectDatabase(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DB_URL)
	case config.DriverSQLite:
		dsn := cfg.DB_URL
		if dsn == "" {
			dsn = "mediadrop.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	gormCfg := &gorm.Config{}
	if cfg.IsProduction() {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// OpenStore returns the Store configured by DB_DRIVER.
func OpenStore(cfg config.Config) (Store, error) {
	if cfg.DBDriver == "" || cfg.DBDriver == config.DriverMemory {
		return NewMemoryStore(), nil
	}
	db, err := ConnectDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return NewGormStore(db), nil
}
