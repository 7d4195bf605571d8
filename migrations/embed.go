// Package migrations embeds the parameter state store schema into the binary.
package migrations

import (
	"embed"

	"github.com/bcmodular/scopesync-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
