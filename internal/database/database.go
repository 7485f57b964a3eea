// Package database persists the cycle journal to SQLite or MySQL.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// DB wraps the journal database connection
type DB struct {
	conn    *sql.DB
	driver  string
	dsn     string
	dialect dialect
}

// dialect holds the DDL fragments that differ between backends
type dialect struct {
	autoIncrementPK string
	idType          string
}

var dialects = map[string]dialect{
	DriverSQLite: {autoIncrementPK: "INTEGER PRIMARY KEY AUTOINCREMENT", idType: "TEXT"},
	DriverMySQL:  {autoIncrementPK: "BIGINT PRIMARY KEY AUTO_INCREMENT", idType: "VARCHAR(36)"},
}

// Open connects to the journal database. For sqlite3 the DSN is a file path;
// for mysql it is a go-sql-driver DSN (user:pass@tcp(host:3306)/db).
func Open(driver, dsn string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	connStr := dsn
	switch driver {
	case DriverSQLite:
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		connStr = dsn + "?_foreign_keys=on"
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		connStr = cfg.FormatDSN()
	}

	conn, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1) // SQLite works best with single connection
		conn.SetMaxIdleConns(1)
	}

	return &DB{
		conn:    conn,
		driver:  driver,
		dsn:     dsn,
		dialect: d,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the driver name the database was opened with
func (db *DB) Driver() string {
	return db.driver
}

// ExecTx executes a function within a transaction
func (db *DB) ExecTx(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// GetVersion returns the current database schema version
func (db *DB) GetVersion() (int, error) {
	var version int
	err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}
