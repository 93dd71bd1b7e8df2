package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lifehub/authapi/internal/entities"
)

// DefaultDSN is a named in-memory SQLite database shared by all connections
// of the pool. It disappears with the process.
const DefaultDSN = "file:authapi?mode=memory&cache=shared"

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the SQLite database at dsn and migrates the user table.
func NewDatabase(dsn string) (*Database, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = DefaultDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps a shared
	// in-memory database alive for the lifetime of the pool.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&entities.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Ping checks that the underlying connection is usable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
