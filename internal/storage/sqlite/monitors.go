package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pagewatch/pagewatch/internal/types"
)

const monitorColumns = `id, name, url, selector, kind, interval, last_check, last_value,
	last_screenshot, consecutive_failures, notify_mode, notify_threshold, keywords,
	scenario, ai_prompt, ai_only, selector_hint, active, created_at, updated_at`

// CreateMonitor inserts a new monitor row. An empty ID is assigned a UUID.
func (s *SQLiteStorage) CreateMonitor(ctx context.Context, m *types.Monitor) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid monitor: %w", err)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	keywords, err := json.Marshal(m.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}
	scenario, err := json.Marshal(m.Scenario)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO monitors (id, name, url, selector, kind, interval, last_check, last_value,
			last_screenshot, consecutive_failures, notify_mode, notify_threshold, keywords,
			scenario, ai_prompt, ai_only, selector_hint, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.URL, m.Selector, string(m.Kind), string(m.Interval),
		nullTime(m.LastCheck), m.LastValue, m.LastScreenshot, m.ConsecutiveFailures,
		string(m.Notify.Mode), m.Notify.Threshold, string(keywords), string(scenario),
		m.AIPrompt, m.AIOnly, m.SelectorHint, m.Active, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert monitor: %w", err)
	}
	return nil
}

// GetMonitor retrieves a monitor by ID. Returns (nil, nil) when not found.
func (s *SQLiteStorage) GetMonitor(ctx context.Context, id string) (*types.Monitor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE id = ?`, id)
	m, err := scanMonitor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monitor %s: %w", id, err)
	}
	return m, nil
}

// ListMonitors returns all monitors, optionally filtered to active ones,
// ordered by creation time so scheduling order is stable.
func (s *SQLiteStorage) ListMonitors(ctx context.Context, activeOnly bool) ([]*types.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}
	defer rows.Close()

	var monitors []*types.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monitor: %w", err)
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

// DeleteMonitor removes a monitor; its check history goes with it by cascade.
func (s *SQLiteStorage) DeleteMonitor(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete monitor %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("monitor %s not found", id)
	}
	return nil
}

// ApplyCheckResult writes the mutable fields a completed check produced.
// Nil pointer fields are left untouched, so a failed check updates only
// last_check and the failure counter.
func (s *SQLiteStorage) ApplyCheckResult(ctx context.Context, id string, result *types.CheckResult) error {
	sets := []string{"last_check = ?", "consecutive_failures = ?", "updated_at = ?"}
	args := []interface{}{result.LastCheck.UTC(), result.ConsecutiveFailures, time.Now().UTC()}

	if result.LastValue != nil {
		sets = append(sets, "last_value = ?")
		args = append(args, *result.LastValue)
	}
	if result.LastScreenshot != nil {
		sets = append(sets, "last_screenshot = ?")
		args = append(args, *result.LastScreenshot)
	}
	if result.Selector != nil {
		sets = append(sets, "selector = ?")
		args = append(args, *result.Selector)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE monitors SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to apply check result for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("monitor %s not found", id)
	}
	return nil
}

// SetActive enables or disables scheduling for a monitor
func (s *SQLiteStorage) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE monitors SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set active for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("monitor %s not found", id)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanMonitor
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMonitor(row scanner) (*types.Monitor, error) {
	var (
		m            types.Monitor
		kind         string
		interval     string
		lastCheck    sql.NullTime
		notifyMode   string
		keywordsJSON string
		scenarioJSON string
	)
	err := row.Scan(&m.ID, &m.Name, &m.URL, &m.Selector, &kind, &interval, &lastCheck,
		&m.LastValue, &m.LastScreenshot, &m.ConsecutiveFailures, &notifyMode,
		&m.Notify.Threshold, &keywordsJSON, &scenarioJSON, &m.AIPrompt, &m.AIOnly,
		&m.SelectorHint, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Kind = types.MonitorKind(kind)
	m.Interval = types.Interval(interval)
	m.Notify.Mode = types.NotifyMode(notifyMode)
	if lastCheck.Valid {
		t := lastCheck.Time
		m.LastCheck = &t
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &m.Keywords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(scenarioJSON), &m.Scenario); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	return &m, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
