package repo

import (
	"context"
	"database/sql"

	"projectline/internal/domain"
)

const projectColumns = `id,name,description,start_date,target_end_date,actual_end_date,status,estimated_effort_hours,actual_effort_hours,external_id,project_manager_id,created_at,updated_at`

func scanProjectRow(scan func(dest ...any) error) (domain.Project, error) {
	var p domain.Project
	var desc, targetEnd, actualEnd, extID sql.NullString
	var actualEffort sql.NullInt64
	err := scan(&p.ID, &p.Name, &desc, &p.StartDate, &targetEnd, &actualEnd, &p.Status,
		&p.EstimatedEffortHours, &actualEffort, &extID, &p.ProjectManagerID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if desc.Valid {
		p.Description = desc.String
	}
	p.TargetEndDate = strPtr(targetEnd)
	p.ActualEndDate = strPtr(actualEnd)
	p.ExternalID = strPtr(extID)
	p.ActualEffortHours = intPtr(actualEffort)
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO projects(name,description,start_date,target_end_date,actual_end_date,status,estimated_effort_hours,actual_effort_hours,external_id,project_manager_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, nullable(p.Description), p.StartDate, nullableStringPtr(p.TargetEndDate), nullableStringPtr(p.ActualEndDate),
		p.Status, p.EstimatedEffortHours, nullableIntPtr(p.ActualEffortHours), nullableStringPtr(p.ExternalID),
		p.ProjectManagerID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET name=?, description=?, start_date=?, target_end_date=?, actual_end_date=?, status=?, estimated_effort_hours=?, actual_effort_hours=?, external_id=?, project_manager_id=?, updated_at=? WHERE id=?`,
		p.Name, nullable(p.Description), p.StartDate, nullableStringPtr(p.TargetEndDate), nullableStringPtr(p.ActualEndDate),
		p.Status, p.EstimatedEffortHours, nullableIntPtr(p.ActualEffortHours), nullableStringPtr(p.ExternalID),
		p.ProjectManagerID, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	p, err := scanProjectRow(row.Scan)
	if err != nil {
		return p, err
	}
	p.TeamMemberIDs, err = r.ListTeamMemberIDs(ctx, p.ID)
	return p, err
}

func (r Repo) listProjects(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProjectRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].TeamMemberIDs, err = r.ListTeamMemberIDs(ctx, res[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return r.listProjects(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
}

func (r Repo) ListProjectsByStatus(ctx context.Context, status string) ([]domain.Project, error) {
	return r.listProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE status=? ORDER BY id`, status)
}

func (r Repo) ListProjectsByManager(ctx context.Context, managerID int64) ([]domain.Project, error) {
	return r.listProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE project_manager_id=? ORDER BY id`, managerID)
}

func (r Repo) ListProjectsByTeamMember(ctx context.Context, userID int64) ([]domain.Project, error) {
	return r.listProjects(ctx, `SELECT `+projectColumns+` FROM projects
WHERE id IN (SELECT project_id FROM project_team WHERE user_id=?) ORDER BY id`, userID)
}

func (r Repo) DeleteProject(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ProjectExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id=?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r Repo) ListTeamMemberIDs(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT user_id FROM project_team WHERE project_id=? ORDER BY user_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReplaceTeam swaps the whole membership set inside the caller's transaction.
func (r Repo) ReplaceTeam(ctx context.Context, tx *sql.Tx, projectID int64, userIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_team WHERE project_id=?`, projectID); err != nil {
		return err
	}
	for _, id := range userIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO project_team(project_id,user_id) VALUES (?,?)`, projectID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) AddTeamMember(ctx context.Context, projectID, userID int64) error {
	_, err := r.DB.ExecContext(ctx, `INSERT OR IGNORE INTO project_team(project_id,user_id) VALUES (?,?)`, projectID, userID)
	return err
}

func (r Repo) RemoveTeamMember(ctx context.Context, projectID, userID int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM project_team WHERE project_id=? AND user_id=?`, projectID, userID)
	return err
}

func (r Repo) SetProjectStatus(ctx context.Context, id int64, status, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE projects SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) TouchProject(ctx context.Context, id int64, updatedAt string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE projects SET updated_at=? WHERE id=?`, updatedAt, id)
	return err
}
