package service

import (
	"context"

	"projectline/internal/domain"
	"projectline/internal/repo"
)

// Read-model projections returned by the services. Nested references are
// replaced by lightweight user summaries; timestamps are RFC3339 UTC.

type UserSummary struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      domain.UserRole `json:"role"`
	Active    bool            `json:"active"`
}

type UserDTO struct {
	UserSummary
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type ProjectDTO struct {
	ID                   int64         `json:"id"`
	Name                 string        `json:"name"`
	Description          string        `json:"description,omitempty"`
	StartDate            string        `json:"start_date" format:"date"`
	TargetEndDate        *string       `json:"target_end_date,omitempty" format:"date"`
	ActualEndDate        *string       `json:"actual_end_date,omitempty" format:"date"`
	Status               string        `json:"status"`
	EstimatedEffortHours int           `json:"estimated_effort_hours"`
	ActualEffortHours    *int          `json:"actual_effort_hours,omitempty"`
	ExternalID           *string       `json:"external_id,omitempty"`
	ProjectManager       UserSummary   `json:"project_manager"`
	TeamMembers          []UserSummary `json:"team_members,omitempty"`
	CreatedAt            string        `json:"created_at" format:"date-time"`
	UpdatedAt            string        `json:"updated_at" format:"date-time"`
}

type TaskDTO struct {
	ID             int64               `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	Status         domain.TaskStatus   `json:"status"`
	Priority       domain.TaskPriority `json:"priority"`
	DueDate        *string             `json:"due_date,omitempty" format:"date"`
	EstimatedHours *int                `json:"estimated_hours,omitempty"`
	ActualHours    *int                `json:"actual_hours,omitempty"`
	ExternalID     *string             `json:"external_id,omitempty"`
	ProjectID      int64               `json:"project_id"`
	Assignee       *UserSummary        `json:"assignee,omitempty"`
	ParentTaskID   *int64              `json:"parent_task_id,omitempty"`
	CreatedAt      string              `json:"created_at" format:"date-time"`
	UpdatedAt      string              `json:"updated_at" format:"date-time"`
}

func userSummary(u domain.User) UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Active:    u.Active,
	}
}

func userDTO(u domain.User) UserDTO {
	return UserDTO{
		UserSummary: userSummary(u),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func projectDTO(ctx context.Context, r repo.Repo, p domain.Project) (ProjectDTO, error) {
	dto := ProjectDTO{
		ID:                   p.ID,
		Name:                 p.Name,
		Description:          p.Description,
		StartDate:            p.StartDate,
		TargetEndDate:        p.TargetEndDate,
		ActualEndDate:        p.ActualEndDate,
		Status:               p.Status,
		EstimatedEffortHours: p.EstimatedEffortHours,
		ActualEffortHours:    p.ActualEffortHours,
		ExternalID:           p.ExternalID,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	manager, err := r.GetUser(ctx, p.ProjectManagerID)
	if err != nil {
		return dto, err
	}
	dto.ProjectManager = userSummary(manager)
	for _, id := range p.TeamMemberIDs {
		member, err := r.GetUser(ctx, id)
		if err != nil {
			return dto, err
		}
		dto.TeamMembers = append(dto.TeamMembers, userSummary(member))
	}
	return dto, nil
}

func taskDTO(ctx context.Context, r repo.Repo, t domain.Task) (TaskDTO, error) {
	dto := TaskDTO{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		Priority:       t.Priority,
		DueDate:        t.DueDate,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		ExternalID:     t.ExternalID,
		ProjectID:      t.ProjectID,
		ParentTaskID:   t.ParentTaskID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.AssigneeID != nil {
		assignee, err := r.GetUser(ctx, *t.AssigneeID)
		if err != nil {
			return dto, err
		}
		summary := userSummary(assignee)
		dto.Assignee = &summary
	}
	return dto, nil
}
