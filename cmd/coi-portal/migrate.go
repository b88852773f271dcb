package main

import (
	"fmt"

	"coiportal/internal/db"
)

func runMigrations(cmd, databaseURL string) error {
	switch cmd {
	case "migrate":
		if err := db.Migrate(databaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	case "migrate-status":
		return db.MigrationStatus(databaseURL)
	}
	return nil
}
