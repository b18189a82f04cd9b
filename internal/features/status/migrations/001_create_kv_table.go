package migrations

import (
	"quarterly-status/internal/core"
)

// Migration001CreateKVTable creates the key-value table backing the status store.
// expires_at holds unix milliseconds; NULL never expires.
var Migration001CreateKVTable = core.Migration{
	Version:     1,
	Name:        "create_status_kv",
	Description: "Create key-value table for status history, location and cached view",
	UpSQL: `
		CREATE TABLE IF NOT EXISTS status_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at BIGINT,
			updated_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_status_kv_expires_at ON status_kv(expires_at);
	`,
}
