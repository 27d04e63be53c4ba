package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migrate creates the schema if it does not exist yet. Statements are written
// per driver because of the differing autoincrement syntax.
func Migrate(db *sql.DB, dbType string) error {
	var stmts []string

	if dbType == "postgres" {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id SERIAL PRIMARY KEY,
				account_id TEXT NOT NULL UNIQUE,
				email TEXT NOT NULL UNIQUE,
				nickname TEXT NOT NULL,
				password TEXT NOT NULL,
				image_path TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS bookmarks (
				id SERIAL PRIMARY KEY,
				user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				board_id INTEGER NOT NULL,
				title TEXT NOT NULL,
				writer TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookmarks_user_id ON bookmarks(user_id)`,
		}
	} else {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				account_id TEXT NOT NULL UNIQUE,
				email TEXT NOT NULL UNIQUE,
				nickname TEXT NOT NULL,
				password TEXT NOT NULL,
				image_path TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS bookmarks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				board_id INTEGER NOT NULL,
				title TEXT NOT NULL,
				writer TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookmarks_user_id ON bookmarks(user_id)`,
		}
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Printf("Database migrations completed")
	return nil
}
