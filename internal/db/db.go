package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func Migrate(db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration error: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS servers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		game TEXT NOT NULL,
		container_id TEXT,
		image TEXT NOT NULL,
		game_port TEXT NOT NULL DEFAULT '',
		env TEXT NOT NULL DEFAULT '{}',
		memory_limit INTEGER DEFAULT 0,
		cpu_limit REAL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'stopped',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS automations (
		server_id TEXT PRIMARY KEY REFERENCES servers(id) ON DELETE CASCADE,
		enabled INTEGER NOT NULL DEFAULT 0,
		sequences TEXT NOT NULL DEFAULT '{}',
		last_edited_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS presence (
		server_id TEXT PRIMARY KEY REFERENCES servers(id) ON DELETE CASCADE,
		players TEXT NOT NULL DEFAULT '[]',
		greeted_players TEXT NOT NULL DEFAULT '[]',
		last_server_status INTEGER NOT NULL DEFAULT 0,
		last_checked DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS automation_logs (
		id TEXT PRIMARY KEY,
		server_id TEXT NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
		sequence_id TEXT NOT NULL,
		sequence_name TEXT NOT NULL,
		trigger_name TEXT NOT NULL,
		executed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		executed_by TEXT NOT NULL,
		success INTEGER NOT NULL,
		actions_executed INTEGER NOT NULL,
		actions_failed INTEGER NOT NULL,
		errors TEXT NOT NULL DEFAULT '[]',
		duration_ms INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_automation_logs_server_time ON automation_logs(server_id, executed_at)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		server_id TEXT NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		cron_expr TEXT NOT NULL,
		action TEXT NOT NULL,
		enabled INTEGER DEFAULT 1,
		last_run DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}
