package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database schema migration
type Migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx, dialect) error
	Down        func(*sql.Tx, dialect) error
}

// migrations is the ordered list of all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create runs table",
		Up:          migration001Up,
		Down:        migration001Down,
	},
	{
		Version:     2,
		Description: "Create cycle_log table",
		Up:          migration002Up,
		Down:        migration002Down,
	},
}

// LatestVersion is the schema version after all migrations
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// RunMigrations runs all pending database migrations
func (db *DB) RunMigrations() error {
	if _, err := db.conn.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id %s,
			version INTEGER NOT NULL UNIQUE,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`, db.dialect.autoIncrementPK)); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	currentVersion, err := db.GetVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := migration.Up(tx, db.dialect); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			// Record migration
			_, err := tx.Exec(`
				INSERT INTO schema_version (version, description, applied_at)
				VALUES (?, ?, ?)
			`, migration.Version, migration.Description, time.Now().UTC())

			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// RollbackTo reverts migrations newer than version
func (db *DB) RollbackTo(version int) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version <= version {
			break
		}

		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := migration.Down(tx, db.dialect); err != nil {
				return fmt.Errorf("rollback of migration %d failed: %w", migration.Version, err)
			}
			_, err := tx.Exec(`DELETE FROM schema_version WHERE version = ?`, migration.Version)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Migration 001: one row per loop run
func migration001Up(tx *sql.Tx, d dialect) error {
	_, err := tx.Exec(fmt.Sprintf(`
		CREATE TABLE runs (
			id %s PRIMARY KEY,
			window_title TEXT NOT NULL,
			symbol TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			stopped_at DATETIME NULL,
			cycles INTEGER NOT NULL DEFAULT 0
		)
	`, d.idType))
	return err
}

func migration001Down(tx *sql.Tx, _ dialect) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS runs`)
	return err
}

// Migration 002: one row per cycle
func migration002Up(tx *sql.Tx, d dialect) error {
	if _, err := tx.Exec(fmt.Sprintf(`
		CREATE TABLE cycle_log (
			id %s,
			run_id %s NOT NULL,
			cycle INTEGER NOT NULL,
			outcome VARCHAR(32) NOT NULL,
			x INTEGER NULL,
			y INTEGER NULL,
			confidence DOUBLE NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NULL,
			occurred_at DATETIME NOT NULL
		)
	`, d.autoIncrementPK, d.idType)); err != nil {
		return err
	}

	_, err := tx.Exec(`CREATE INDEX idx_cycle_log_run ON cycle_log(run_id, cycle)`)
	return err
}

func migration002Down(tx *sql.Tx, _ dialect) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS cycle_log`)
	return err
}
