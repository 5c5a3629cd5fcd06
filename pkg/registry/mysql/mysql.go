package mysql

import (
	"fmt"

	gormreg "github.com/opencampus/sage/pkg/registry/gorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// New creates a new MySQL-backed registry store.
func New(dsn string) (*gormreg.Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	return gormreg.New(db)
}
