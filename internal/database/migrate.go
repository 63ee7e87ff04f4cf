package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on every start.  Amounts are BIGINT UNSIGNED
// so the full uint64 range of base units fits.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ticket_policy (
		id            TINYINT UNSIGNED NOT NULL PRIMARY KEY,
		name          VARCHAR(128) NOT NULL,
		symbol        VARCHAR(32) NOT NULL,
		price         BIGINT UNSIGNED NOT NULL,
		max_tickets   BIGINT UNSIGNED NOT NULL,
		issued_count  BIGINT UNSIGNED NOT NULL DEFAULT 0,
		custody       BIGINT UNSIGNED NOT NULL DEFAULT 0,
		admin_account VARCHAR(64) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id            BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		owner_account VARCHAR(64) NOT NULL,
		metadata_uri  TEXT NOT NULL,
		used          TINYINT(1) NOT NULL DEFAULT 0,
		minted_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		used_at       DATETIME NULL,
		KEY idx_tickets_owner (owner_account)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS withdrawals (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		admin_account VARCHAR(64) NOT NULL,
		amount        BIGINT UNSIGNED NOT NULL,
		created_at    DATETIME NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16) NOT NULL,
		balance       BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_accounts_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		account_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY idx_refresh_account (account_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.  Existing tables are left as they are.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
