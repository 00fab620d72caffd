package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kanban/internal/server/ports"
)

// RunStore implements ports.RunStore.
type RunStore struct {
	db *DB
}

const runColumns = "id, task_id, status, logs, error_message, started_at, completed_at, created_at"

func (s *RunStore) Get(ctx context.Context, id string) (*ports.Run, error) {
	row := s.db.sql.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM agent_runs WHERE id = ?", id)
	return scanRun(row)
}

// Insert persists the run. The partial unique index on active statuses
// turns a second active run for the same task into ErrActiveRunExists.
func (s *RunStore) Insert(ctx context.Context, run *ports.Run) error {
	_, err := s.db.sql.ExecContext(ctx, `
		INSERT INTO agent_runs (id, task_id, status, logs, error_message, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TaskID, string(run.Status), nullable(run.Logs), nullable(run.ErrorMessage),
		formatNullableTime(run.StartedAt), formatNullableTime(run.CompletedAt), formatTime(run.CreatedAt))
	if isUniqueViolation(err) {
		return ports.ErrActiveRunExists
	}
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (s *RunStore) Update(ctx context.Context, run *ports.Run) error {
	result, err := s.db.sql.ExecContext(ctx, `
		UPDATE agent_runs SET status = ?, logs = ?, error_message = ?, started_at = ?, completed_at = ?
		WHERE id = ?`,
		string(run.Status), nullable(run.Logs), nullable(run.ErrorMessage),
		formatNullableTime(run.StartedAt), formatNullableTime(run.CompletedAt), run.ID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	return requireRow(result, run.ID)
}

func (s *RunStore) List(ctx context.Context, filter ports.RunFilter) ([]*ports.Run, error) {
	query := "SELECT " + runColumns + " FROM agent_runs"
	var clauses []string
	var args []any
	if filter.TaskID != "" {
		clauses = append(clauses, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*ports.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *RunStore) ActiveForTask(ctx context.Context, taskID string) (*ports.Run, error) {
	row := s.db.sql.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM agent_runs WHERE task_id = ? AND status IN ('pending', 'running')",
		taskID)
	return scanRun(row)
}

func scanRun(row rowScanner) (*ports.Run, error) {
	var run ports.Run
	var logs, errorMessage, startedAt, completedAt sql.NullString
	var status, createdAt string

	err := row.Scan(&run.ID, &run.TaskID, &status, &logs, &errorMessage,
		&startedAt, &completedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Status = ports.RunStatus(status)
	run.Logs = logs.String
	run.ErrorMessage = errorMessage.String
	run.StartedAt = parseNullableTime(startedAt)
	run.CompletedAt = parseNullableTime(completedAt)
	run.CreatedAt = parseTime(createdAt)
	return &run, nil
}
