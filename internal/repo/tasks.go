package repo

import (
	"context"
	"database/sql"
	"strings"

	"projectline/internal/domain"
)

const taskColumns = `id,title,description,status,priority,due_date,estimated_hours,actual_hours,external_id,project_id,assignee_id,parent_task_id,created_at,updated_at`

func scanTaskRow(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var desc, dueDate, extID sql.NullString
	var estHours, actHours, assigneeID, parentID sql.NullInt64
	err := scan(&t.ID, &t.Title, &desc, &t.Status, &t.Priority, &dueDate, &estHours, &actHours,
		&extID, &t.ProjectID, &assigneeID, &parentID, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if desc.Valid {
		t.Description = desc.String
	}
	t.DueDate = strPtr(dueDate)
	t.ExternalID = strPtr(extID)
	t.EstimatedHours = intPtr(estHours)
	t.ActualHours = intPtr(actHours)
	t.AssigneeID = int64Ptr(assigneeID)
	t.ParentTaskID = int64Ptr(parentID)
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO tasks(title,description,status,priority,due_date,estimated_hours,actual_hours,external_id,project_id,assignee_id,parent_task_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.Title, nullable(t.Description), string(t.Status), string(t.Priority), nullableStringPtr(t.DueDate),
		nullableIntPtr(t.EstimatedHours), nullableIntPtr(t.ActualHours), nullableStringPtr(t.ExternalID),
		t.ProjectID, nullableInt64Ptr(t.AssigneeID), nullableInt64Ptr(t.ParentTaskID), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateTask(ctx context.Context, t domain.Task) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, priority=?, due_date=?, estimated_hours=?, actual_hours=?, external_id=?, project_id=?, assignee_id=?, parent_task_id=?, updated_at=? WHERE id=?`,
		t.Title, nullable(t.Description), string(t.Status), string(t.Priority), nullableStringPtr(t.DueDate),
		nullableIntPtr(t.EstimatedHours), nullableIntPtr(t.ActualHours), nullableStringPtr(t.ExternalID),
		t.ProjectID, nullableInt64Ptr(t.AssigneeID), nullableInt64Ptr(t.ParentTaskID), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTaskRow(row.Scan)
}

// TaskFilters narrows ListTasks; zero values mean "no constraint".
type TaskFilters struct {
	ProjectID   int64
	AssigneeID  int64
	ParentID    int64
	Status      domain.TaskStatus
	DueBefore   string // exclusive upper bound on due_date
	DueFrom     string // inclusive lower bound on due_date
	DueTo       string // inclusive upper bound on due_date
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != 0 {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.AssigneeID != 0 {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.ParentID != 0 {
		clauses = append(clauses, "parent_task_id=?")
		args = append(args, f.ParentID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, string(f.Status))
	}
	if f.DueBefore != "" {
		clauses = append(clauses, "due_date IS NOT NULL AND due_date < ?")
		args = append(args, f.DueBefore)
	}
	if f.DueFrom != "" {
		clauses = append(clauses, "due_date IS NOT NULL AND due_date >= ?")
		args = append(args, f.DueFrom)
	}
	if f.DueTo != "" {
		clauses = append(clauses, "due_date IS NOT NULL AND due_date <= ?")
		args = append(args, f.DueTo)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTaskRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) TaskExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id=?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r Repo) CountSubtasks(ctx context.Context, parentID int64) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM tasks WHERE parent_task_id=?`, parentID).Scan(&count)
	return count, err
}

func (r Repo) CountTasksForProject(ctx context.Context, projectID int64) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM tasks WHERE project_id=?`, projectID).Scan(&count)
	return count, err
}
