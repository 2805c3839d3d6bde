package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// LoadCursor reads the fetch cursor for a source. found is false when no
// cursor row exists yet.
func (s *Store) LoadCursor(ctx context.Context, source string) (models.FetchCursor, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_run_at, current_page, in_progress, last_error,
		       last_complete_run_at, total_items_seen
		FROM fetch_cursors WHERE source = ?`, source)

	var (
		lastRunAt       string
		currentPage     sql.NullInt64
		inProgress      int
		lastError       string
		lastCompleteRun sql.NullString
		totalItemsSeen  int64
	)
	err := row.Scan(&lastRunAt, &currentPage, &inProgress, &lastError, &lastCompleteRun, &totalItemsSeen)
	if err == sql.ErrNoRows {
		return models.FetchCursor{Source: source}, false, nil
	}
	if err != nil {
		return models.FetchCursor{}, false, fmt.Errorf("load cursor: %w", err)
	}

	cur := models.FetchCursor{
		Source:         source,
		InProgress:     inProgress != 0,
		LastError:      lastError,
		TotalItemsSeen: totalItemsSeen,
	}
	if lastRunAt != "" {
		cur.LastRunAt = parseTime(lastRunAt)
	}
	if currentPage.Valid {
		page := int(currentPage.Int64)
		cur.CurrentPage = &page
	}
	if lastCompleteRun.Valid && lastCompleteRun.String != "" {
		t := parseTime(lastCompleteRun.String)
		cur.LastCompleteRunAt = &t
	}
	return cur, true, nil
}

// ClaimCursor atomically takes the run mutex for a source, creating the
// cursor row on first use. It returns false when another run still holds
// the cursor; in that case nothing was mutated.
func (s *Store) ClaimCursor(ctx context.Context, source string, now time.Time) (bool, error) {
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO fetch_cursors (source) VALUES (?)", source); err != nil {
		return false, fmt.Errorf("ensure cursor: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE fetch_cursors SET in_progress = 1, last_run_at = ?
		WHERE source = ? AND in_progress = 0`, fmtTime(now), source)
	if err != nil {
		return false, fmt.Errorf("claim cursor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim cursor: %w", err)
	}
	return affected > 0, nil
}

// SaveProgress persists the page the orchestrator will resume from, while
// the run is still in progress.
func (s *Store) SaveProgress(ctx context.Context, source string, currentPage int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE fetch_cursors SET current_page = ? WHERE source = ?", currentPage, source)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// FinalizeCursor releases the run mutex and persists the terminal cursor
// state. It is the guaranteed-cleanup write: the orchestrator defers it so
// in_progress clears on every exit path.
func (s *Store) FinalizeCursor(ctx context.Context, cur models.FetchCursor) error {
	var currentPage any
	if cur.CurrentPage != nil {
		currentPage = *cur.CurrentPage
	}
	var lastComplete any
	if cur.LastCompleteRunAt != nil {
		lastComplete = fmtTime(*cur.LastCompleteRunAt)
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE fetch_cursors SET
			in_progress = 0,
			current_page = ?,
			last_error = ?,
			last_complete_run_at = COALESCE(?, last_complete_run_at),
			total_items_seen = ?
		WHERE source = ?`,
		currentPage, cur.LastError, lastComplete, cur.TotalItemsSeen, cur.Source)
	if err != nil {
		return fmt.Errorf("finalize cursor: %w", err)
	}
	return nil
}
