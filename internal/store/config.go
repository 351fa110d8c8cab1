package store

import (
	"context"
	"database/sql"

	engine "github.com/remiliacorporation/wikitool/internal/errs"
)

// GetConfig reads one key from the config table, returning ("", false,
// nil) if the key has never been set.
func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, engine.Newf(engine.KindFilesystemError, key, err)
	}
	return value, true, nil
}

// SetConfig upserts one config key/value pair, used for schema_version
// bookkeeping and per-namespace pull watermarks (last_pull_ns_<key>).
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return engine.Newf(engine.KindFilesystemError, key, err)
	}
	return nil
}
