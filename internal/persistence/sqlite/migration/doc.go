// Package migration applies the versioned SQLite schema.
//
// Migration files are embedded into the binary and follow the naming
// convention {version}_{description}.sql (e.g. "001_initial_schema.sql").
// Applied versions are tracked in a schema_migrations table so each file
// runs exactly once.
//
// Example usage:
//
//	db, err := migration.NewConnectionManager(cfg).GetConnection()
//	manager := migration.NewMigrationManager(migration.NewFileScanner(migration.Files), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
