package repository

// schema returns the CREATE statements for d, one statement per entry.
func schema(d Dialect) []string {
	switch d {
	case DialectPostgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS users (
				user_id BIGINT PRIMARY KEY,
				username TEXT NOT NULL DEFAULT '',
				balance BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE TABLE IF NOT EXISTS bm_offers (
				user_id BIGINT NOT NULL,
				slot_number INTEGER NOT NULL,
				item_key TEXT NOT NULL,
				item_type TEXT NOT NULL,
				current_price BIGINT NOT NULL,
				original_price BIGINT NOT NULL,
				is_stolen BOOLEAN NOT NULL DEFAULT FALSE,
				is_exclusive BOOLEAN NOT NULL DEFAULT FALSE,
				quantity INTEGER NOT NULL DEFAULT 1,
				wear_data TEXT,
				custom_data TEXT,
				generated_at TIMESTAMPTZ NOT NULL,
				is_purchased BOOLEAN NOT NULL DEFAULT FALSE,
				PRIMARY KEY (user_id, slot_number)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bm_offers_generated_at ON bm_offers(generated_at)`,
			`CREATE TABLE IF NOT EXISTS inventory_items (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL,
				item_key TEXT NOT NULL,
				item_type TEXT NOT NULL,
				quantity INTEGER NOT NULL DEFAULT 1,
				color TEXT NOT NULL DEFAULT '',
				wear_data TEXT,
				custom_data TEXT,
				defective BOOLEAN NOT NULL DEFAULT FALSE,
				source TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				acquired_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_inventory_user_type ON inventory_items(user_id, item_type)`,
			`CREATE TABLE IF NOT EXISTS bm_monthly_purchases (
				user_id BIGINT NOT NULL,
				month TEXT NOT NULL,
				phone_count INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, month)
			)`,
		}
	case DialectMySQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS users (
				user_id BIGINT PRIMARY KEY,
				username VARCHAR(255) NOT NULL DEFAULT '',
				balance BIGINT NOT NULL DEFAULT 0,
				created_at DATETIME(6) NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS bm_offers (
				user_id BIGINT NOT NULL,
				slot_number INT NOT NULL,
				item_key VARCHAR(64) NOT NULL,
				item_type VARCHAR(16) NOT NULL,
				current_price BIGINT NOT NULL,
				original_price BIGINT NOT NULL,
				is_stolen BOOLEAN NOT NULL DEFAULT FALSE,
				is_exclusive BOOLEAN NOT NULL DEFAULT FALSE,
				quantity INT NOT NULL DEFAULT 1,
				wear_data TEXT,
				custom_data TEXT,
				generated_at DATETIME(6) NOT NULL,
				is_purchased BOOLEAN NOT NULL DEFAULT FALSE,
				PRIMARY KEY (user_id, slot_number),
				INDEX idx_bm_offers_generated_at (generated_at)
			)`,
			`CREATE TABLE IF NOT EXISTS inventory_items (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				user_id BIGINT NOT NULL,
				item_key VARCHAR(64) NOT NULL,
				item_type VARCHAR(16) NOT NULL,
				quantity INT NOT NULL DEFAULT 1,
				color VARCHAR(64) NOT NULL DEFAULT '',
				wear_data TEXT,
				custom_data TEXT,
				defective BOOLEAN NOT NULL DEFAULT FALSE,
				source VARCHAR(32) NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				acquired_at DATETIME(6) NOT NULL,
				INDEX idx_inventory_user_type (user_id, item_type)
			)`,
			`CREATE TABLE IF NOT EXISTS bm_monthly_purchases (
				user_id BIGINT NOT NULL,
				month CHAR(7) NOT NULL,
				phone_count INT NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, month)
			)`,
		}
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			balance INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bm_offers (
			user_id INTEGER NOT NULL,
			slot_number INTEGER NOT NULL,
			item_key TEXT NOT NULL,
			item_type TEXT NOT NULL,
			current_price INTEGER NOT NULL,
			original_price INTEGER NOT NULL,
			is_stolen BOOLEAN NOT NULL DEFAULT 0,
			is_exclusive BOOLEAN NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL DEFAULT 1,
			wear_data TEXT,
			custom_data TEXT,
			generated_at DATETIME NOT NULL,
			is_purchased BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, slot_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bm_offers_generated_at ON bm_offers(generated_at)`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			item_key TEXT NOT NULL,
			item_type TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			color TEXT NOT NULL DEFAULT '',
			wear_data TEXT,
			custom_data TEXT,
			defective BOOLEAN NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			acquired_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_user_type ON inventory_items(user_id, item_type)`,
		`CREATE TABLE IF NOT EXISTS bm_monthly_purchases (
			user_id INTEGER NOT NULL,
			month TEXT NOT NULL,
			phone_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, month)
		)`,
	}
}
