package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pagewatch/pagewatch/internal/types"
)

const checkColumns = `id, monitor_id, status, value, screenshot, diff_image, diff_text,
	summary, http_status, error, created_at`

// RecordCheck appends one check attempt to the history. Records are
// immutable once written.
func (s *SQLiteStorage) RecordCheck(ctx context.Context, rec *types.CheckRecord) error {
	if !rec.Status.IsValid() {
		return fmt.Errorf("invalid check status: %s", rec.Status)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var httpStatus interface{}
	if rec.HTTPStatus != nil {
		httpStatus = *rec.HTTPStatus
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checks (id, monitor_id, status, value, screenshot, diff_image,
			diff_text, summary, http_status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MonitorID, string(rec.Status), rec.Value, rec.Screenshot,
		rec.DiffImage, rec.DiffText, rec.Summary, httpStatus, rec.Error, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert check record: %w", err)
	}
	return nil
}

// GetChecks returns the most recent check records for a monitor, newest first
func (s *SQLiteStorage) GetChecks(ctx context.Context, monitorID string, limit int) ([]*types.CheckRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+checkColumns+` FROM checks WHERE monitor_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query checks: %w", err)
	}
	defer rows.Close()

	var records []*types.CheckRecord
	for rows.Next() {
		rec, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetLatestCheck returns the most recent check record for a monitor,
// or (nil, nil) when the monitor has no history yet.
func (s *SQLiteStorage) GetLatestCheck(ctx context.Context, monitorID string) (*types.CheckRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+checkColumns+` FROM checks WHERE monitor_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, monitorID)
	rec, err := scanCheck(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest check: %w", err)
	}
	return rec, nil
}

// PruneChecks deletes history beyond the newest keep records for a
// monitor and returns the number deleted. keep <= 0 keeps everything.
func (s *SQLiteStorage) PruneChecks(ctx context.Context, monitorID string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM checks WHERE monitor_id = ? AND id NOT IN (
			SELECT id FROM checks WHERE monitor_id = ?
			ORDER BY created_at DESC, id DESC LIMIT ?
		)`, monitorID, monitorID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune checks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned checks: %w", err)
	}
	return int(n), nil
}

func scanCheck(row scanner) (*types.CheckRecord, error) {
	var (
		rec        types.CheckRecord
		status     string
		httpStatus sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.MonitorID, &status, &rec.Value, &rec.Screenshot,
		&rec.DiffImage, &rec.DiffText, &rec.Summary, &httpStatus, &rec.Error, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = types.CheckStatus(status)
	if httpStatus.Valid {
		v := int(httpStatus.Int64)
		rec.HTTPStatus = &v
	}
	return &rec, nil
}
