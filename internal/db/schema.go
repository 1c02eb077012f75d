package db

import "guestbook/internal/config"

// Las sentencias usan IF NOT EXISTS para poder correr en cada arranque.
var schemaStatements = map[string][]string{
	config.DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages (created_at)`,
	},
	// MySQL no admite CREATE INDEX IF NOT EXISTS, el indice va en la tabla.
	config.DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			INDEX idx_messages_created_at (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	},
	// SQLite ignora el largo de VARCHAR, el CHECK mantiene el limite de 255.
	config.DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(255) NOT NULL CHECK (length(name) <= 255),
			message TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages (created_at)`,
	},
}
