package mssql

import (
	"fmt"

	gormreg "github.com/opencampus/sage/pkg/registry/gorm"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
)

// New creates a new MSSQL-backed registry store.
func New(dsn string) (*gormreg.Store, error) {
	db, err := gorm.Open(sqlserver.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open mssql: %w", err)
	}
	return gormreg.New(db)
}
