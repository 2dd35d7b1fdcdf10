// Package database persists keep-alive run history in MySQL.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dev/bravebird/streamlit-keepalive-go/pkg/models"

	_ "github.com/go-sql-driver/mysql"
)

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateRun inserts a new keep-alive run row.
func (db *DB) CreateRun(ctx context.Context, run *models.KeepAliveRun) error {
	query := `
		INSERT INTO keepalive_runs (id, target_url, temporal_workflow_id, temporal_run_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	run.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		run.TargetURL,
		run.TemporalWorkflowID,
		run.TemporalRunID,
		run.Status,
		run.CreatedAt,
	)

	return err
}

// UpdateRunStarted marks a run as running and records its Temporal identity.
func (db *DB) UpdateRunStarted(ctx context.Context, id, workflowID, temporalRunID string) error {
	query := `
		UPDATE keepalive_runs
		SET temporal_workflow_id = ?, temporal_run_id = ?, status = ?, started_at = NOW()
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query, workflowID, temporalRunID, models.StatusRunning, id)
	return err
}

// UpdateRunResult records the outcome of a finished run.
func (db *DB) UpdateRunResult(ctx context.Context, id string, result models.WorkflowResult) error {
	query := `
		UPDATE keepalive_runs
		SET status = ?, wake_prompt_seen = ?, warmup_outcome = ?, attempts = ?,
		    error_message = ?, completed_at = NOW()
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query,
		result.Status,
		result.WakePromptSeen,
		result.WarmupOutcome,
		result.Attempts,
		result.ErrorMessage,
		id,
	)

	return err
}

// UpdateRunStatus updates the status of a run.
func (db *DB) UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, errorMsg string) error {
	query := `
		UPDATE keepalive_runs
		SET status = ?, error_message = ?,
		    completed_at = CASE WHEN ? IN ('success', 'failed', 'canceled') THEN NOW() ELSE completed_at END
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query, status, errorMsg, status, id)
	return err
}

// GetRun retrieves a run by ID. Returns (nil, nil) when the run does not
// exist.
func (db *DB) GetRun(ctx context.Context, id string) (*models.KeepAliveRun, error) {
	query := `
		SELECT id, target_url, temporal_workflow_id, temporal_run_id, status,
		       wake_prompt_seen, warmup_outcome, attempts, error_message,
		       started_at, completed_at, created_at
		FROM keepalive_runs
		WHERE id = ?
	`

	var run models.KeepAliveRun
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.TargetURL,
		&run.TemporalWorkflowID,
		&run.TemporalRunID,
		&run.Status,
		&run.WakePromptSeen,
		&run.WarmupOutcome,
		&run.Attempts,
		&run.ErrorMessage,
		&run.StartedAt,
		&run.CompletedAt,
		&run.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListRuns retrieves the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]models.KeepAliveRun, error) {
	query := `
		SELECT id, target_url, temporal_workflow_id, temporal_run_id, status,
		       wake_prompt_seen, warmup_outcome, attempts, error_message,
		       started_at, completed_at, created_at
		FROM keepalive_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.KeepAliveRun
	for rows.Next() {
		var run models.KeepAliveRun
		err := rows.Scan(
			&run.ID,
			&run.TargetURL,
			&run.TemporalWorkflowID,
			&run.TemporalRunID,
			&run.Status,
			&run.WakePromptSeen,
			&run.WarmupOutcome,
			&run.Attempts,
			&run.ErrorMessage,
			&run.StartedAt,
			&run.CompletedAt,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
