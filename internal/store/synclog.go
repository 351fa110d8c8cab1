package store

import (
	"context"
	"database/sql"
	"time"

	engine "github.com/remiliacorporation/wikitool/internal/errs"
)

// SyncLogEntry records one sync operation outcome against a single
// page (or the run as a whole, when PageTitle is empty), per
// spec.md §3's sync_log entity.
type SyncLogEntry struct {
	ID           int64
	Operation    string
	PageTitle    string
	Status       string
	RevisionID   int64
	ErrorMessage string
	Details      string
	Timestamp    string
}

// LogSync appends one row to sync_log. Timestamp defaults to now (UTC)
// when entry.Timestamp is empty.
func (s *Store) LogSync(ctx context.Context, entry SyncLogEntry) error {
	ts := entry.Timestamp
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}

	var revID sql.NullInt64
	if entry.RevisionID != 0 {
		revID = sql.NullInt64{Int64: entry.RevisionID, Valid: true}
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO sync_log (operation, page_title, status, revision_id, error_message, details, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Operation, entry.PageTitle, entry.Status, revID, entry.ErrorMessage, entry.Details, ts)
	if err != nil {
		return engine.Newf(engine.KindFilesystemError, entry.PageTitle, err)
	}
	return nil
}

// GetSyncLogs returns the most recent limit log entries, newest first.
// limit <= 0 means no limit.
func (s *Store) GetSyncLogs(ctx context.Context, limit int) ([]SyncLogEntry, error) {
	query := `SELECT id, operation, page_title, status, revision_id, error_message, details, timestamp
		FROM sync_log ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, engine.Newf(engine.KindFilesystemError, "", err)
	}
	defer rows.Close()

	var entries []SyncLogEntry
	for rows.Next() {
		var e SyncLogEntry
		var pageTitle, errorMessage, details sql.NullString
		var revID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Operation, &pageTitle, &e.Status, &revID, &errorMessage, &details, &e.Timestamp); err != nil {
			return nil, engine.Newf(engine.KindFilesystemError, "", err)
		}
		e.PageTitle = pageTitle.String
		e.ErrorMessage = errorMessage.String
		e.Details = details.String
		e.RevisionID = revID.Int64
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
