// Package database opens the SQLite file that stores parameter values per
// configuration UID and applies its schema migrations.
//
// The connection pool is limited to one connection, so snapshot saves and
// restores are serialised. WAL mode keeps reads from the HTTP API from
// blocking behind a save.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded by the migrations package, which sets
// MigrationsFS at init. Files are named YYYYMMDD_HHMMSS_name.up.sql with an
// optional matching .down.sql.
package database
