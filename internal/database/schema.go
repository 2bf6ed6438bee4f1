package database

import (
	"fmt"

	"github.com/matthieukhl/spatula/internal/models"
)

// Migrate creates or updates the customers, shipping_locations, spatulas,
// orders and order_lines tables.
func (db *DB) Migrate() error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// CleanupData removes all rows (but keeps schema), children first.
func (db *DB) CleanupData() error {
	tables := []string{"order_lines", "orders", "spatulas", "shipping_locations", "customers"}

	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}

	return nil
}

// DropSchema removes all application tables.
func (db *DB) DropSchema() error {
	all := models.All()
	// children first
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return nil
}
