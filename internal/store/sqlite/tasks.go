package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"kanban/internal/server/ports"
)

// TaskStore implements ports.TaskStore.
type TaskStore struct {
	db *DB
}

const taskColumns = "id, title, description, result, steps, status, type, source, project_id, parent_id, created_at"

func (s *TaskStore) Get(ctx context.Context, id string) (*ports.Task, error) {
	row := s.db.sql.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	return scanTask(row)
}

func (s *TaskStore) Insert(ctx context.Context, task *ports.Task) error {
	steps, err := marshalSteps(task.Steps)
	if err != nil {
		return err
	}
	_, err = s.db.sql.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, result, steps, status, type, source, project_id, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, task.Result, steps,
		string(task.Status), string(task.Type), string(task.Source),
		nullable(task.ProjectID), nullable(task.ParentID), formatTime(task.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert task %s: %w", task.ID, err)
	}
	return nil
}

func (s *TaskStore) Update(ctx context.Context, task *ports.Task) error {
	steps, err := marshalSteps(task.Steps)
	if err != nil {
		return err
	}
	result, err := s.db.sql.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, result = ?, steps = ?,
			status = ?, type = ?, source = ?, project_id = ?, parent_id = ?
		WHERE id = ?`,
		task.Title, task.Description, task.Result, steps,
		string(task.Status), string(task.Type), string(task.Source),
		nullable(task.ProjectID), nullable(task.ParentID), task.ID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
	return requireRow(result, task.ID)
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.sql.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return requireRow(result, id)
}

func (s *TaskStore) List(ctx context.Context) ([]*ports.Task, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *TaskStore) ListChildren(ctx context.Context, parentID string) ([]*ports.Task, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE parent_id = ? ORDER BY created_at ASC", parentID)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", parentID, err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*ports.Task, error) {
	var task ports.Task
	var steps, projectID, parentID sql.NullString
	var status, taskType, source, createdAt string

	err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Result,
		&steps, &status, &taskType, &source, &projectID, &parentID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Status = ports.TaskStatus(status)
	task.Type = ports.TaskType(taskType)
	task.Source = ports.TaskSource(source)
	task.ProjectID = projectID.String
	task.ParentID = parentID.String
	task.CreatedAt = parseTime(createdAt)

	if steps.Valid && steps.String != "" {
		if err := json.Unmarshal([]byte(steps.String), &task.Steps); err != nil {
			return nil, fmt.Errorf("decode steps for task %s: %w", task.ID, err)
		}
	}
	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*ports.Task, error) {
	var tasks []*ports.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func marshalSteps(steps []ports.Step) (any, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}
	return string(raw), nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func requireRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", id, ports.ErrNotFound)
	}
	return nil
}
