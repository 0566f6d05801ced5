// Package database provides SQLite connectivity for jughead-core.
//
// It opens the database with WAL mode and a busy timeout, and applies
// versioned migrations embedded in the binary by the migrations package.
// The only table the application writes is command_history; device
// bindings are deliberately not persisted.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
