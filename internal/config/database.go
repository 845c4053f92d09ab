// internal/config/database.go
package config

import (
	"fmt"
)

// DSN renders the postgres connection string in keyword form. Pool sizing
// lives on DatabaseConfig and is applied by the database package, not here.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}
