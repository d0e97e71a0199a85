package domain

import "fmt"

// UserRole enumerates the account roles known to the tracker.
type UserRole string

const (
	RolePMO            UserRole = "PMO"
	RoleProjectManager UserRole = "PROJECT_MANAGER"
	RoleDeveloper      UserRole = "DEVELOPER"
	RoleTester         UserRole = "TESTER"
	RoleStakeholder    UserRole = "STAKEHOLDER"
)

func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(s) {
	case RolePMO, RoleProjectManager, RoleDeveloper, RoleTester, RoleStakeholder:
		return UserRole(s), nil
	}
	return "", fmt.Errorf("unknown user role %q", s)
}

// TaskStatus values. DONE and CANCELLED are terminal by convention; the core
// does not enforce transitions between the others.
type TaskStatus string

const (
	TaskBacklog    TaskStatus = "BACKLOG"
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReview     TaskStatus = "REVIEW"
	TaskDone       TaskStatus = "DONE"
	TaskCancelled  TaskStatus = "CANCELLED"
)

func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskBacklog, TaskTodo, TaskInProgress, TaskReview, TaskDone, TaskCancelled:
		return TaskStatus(s), nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// TaskPriority is an ordinal scale; Rank gives the ordering.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "LOW"
	PriorityMedium   TaskPriority = "MEDIUM"
	PriorityHigh     TaskPriority = "HIGH"
	PriorityCritical TaskPriority = "CRITICAL"
)

func ParseTaskPriority(s string) (TaskPriority, error) {
	switch TaskPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return TaskPriority(s), nil
	}
	return "", fmt.Errorf("unknown task priority %q", s)
}

func (p TaskPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	}
	return -1
}

type User struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      UserRole `json:"role"`
	Active    bool     `json:"active"`
	CreatedAt string   `json:"created_at" format:"date-time"`
	UpdatedAt string   `json:"updated_at" format:"date-time"`
}

// Project holds foreign-key ids only; references are resolved through
// explicit repository lookups, never loaded implicitly.
type Project struct {
	ID                   int64   `json:"id"`
	Name                 string  `json:"name"`
	Description          string  `json:"description,omitempty"`
	StartDate            string  `json:"start_date" format:"date"`
	TargetEndDate        *string `json:"target_end_date,omitempty" format:"date"`
	ActualEndDate        *string `json:"actual_end_date,omitempty" format:"date"`
	Status               string  `json:"status"`
	EstimatedEffortHours int     `json:"estimated_effort_hours"`
	ActualEffortHours    *int    `json:"actual_effort_hours,omitempty"`
	ExternalID           *string `json:"external_id,omitempty"`
	ProjectManagerID     int64   `json:"project_manager_id"`
	TeamMemberIDs        []int64 `json:"team_member_ids,omitempty"`
	CreatedAt            string  `json:"created_at" format:"date-time"`
	UpdatedAt            string  `json:"updated_at" format:"date-time"`
}

type Task struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *string      `json:"due_date,omitempty" format:"date"`
	EstimatedHours *int         `json:"estimated_hours,omitempty"`
	ActualHours    *int         `json:"actual_hours,omitempty"`
	ExternalID     *string      `json:"external_id,omitempty"`
	ProjectID      int64        `json:"project_id"`
	AssigneeID     *int64       `json:"assignee_id,omitempty"`
	ParentTaskID   *int64       `json:"parent_task_id,omitempty"`
	CreatedAt      string       `json:"created_at" format:"date-time"`
	UpdatedAt      string       `json:"updated_at" format:"date-time"`
}
