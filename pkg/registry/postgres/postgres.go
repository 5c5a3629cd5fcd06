package postgres

import (
	"fmt"

	gormreg "github.com/opencampus/sage/pkg/registry/gorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// New creates a new Postgres-backed registry store.
func New(dsn string) (*gormreg.Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return gormreg.New(db)
}
