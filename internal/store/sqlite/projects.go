package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kanban/internal/server/ports"
)

// ProjectStore implements ports.ProjectStore.
type ProjectStore struct {
	db *DB
}

func (s *ProjectStore) Get(ctx context.Context, id string) (*ports.Project, error) {
	row := s.db.sql.QueryRowContext(ctx,
		"SELECT id, name, workspace_path, created_at FROM projects WHERE id = ?", id)

	var project ports.Project
	var createdAt string
	err := row.Scan(&project.ID, &project.Name, &project.WorkspacePath, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	project.CreatedAt = parseTime(createdAt)
	return &project, nil
}

func (s *ProjectStore) Insert(ctx context.Context, project *ports.Project) error {
	_, err := s.db.sql.ExecContext(ctx,
		"INSERT INTO projects (id, name, workspace_path, created_at) VALUES (?, ?, ?, ?)",
		project.ID, project.Name, project.WorkspacePath, formatTime(project.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert project %s: %w", project.ID, err)
	}
	return nil
}

func (s *ProjectStore) Update(ctx context.Context, project *ports.Project) error {
	result, err := s.db.sql.ExecContext(ctx,
		"UPDATE projects SET name = ?, workspace_path = ? WHERE id = ?",
		project.Name, project.WorkspacePath, project.ID)
	if err != nil {
		return fmt.Errorf("update project %s: %w", project.ID, err)
	}
	return requireRow(result, project.ID)
}

func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.sql.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return requireRow(result, id)
}

func (s *ProjectStore) List(ctx context.Context) ([]*ports.Project, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT id, name, workspace_path, created_at FROM projects ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*ports.Project
	for rows.Next() {
		var project ports.Project
		var createdAt string
		if err := rows.Scan(&project.ID, &project.Name, &project.WorkspacePath, &createdAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		project.CreatedAt = parseTime(createdAt)
		projects = append(projects, &project)
	}
	return projects, rows.Err()
}
