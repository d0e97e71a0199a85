package service

import (
	"context"
	"errors"
	"time"

	"projectline/internal/domain"
	"projectline/internal/events"
	"projectline/internal/repo"
)

// TaskService manages tasks, their status, assignment and hierarchy.
type TaskService struct {
	Repo   repo.Repo
	Events events.Publisher
	Now    func() time.Time
}

func NewTaskService(r repo.Repo, pub events.Publisher) *TaskService {
	return &TaskService{Repo: r, Events: pub, Now: time.Now}
}

func (s *TaskService) now() string {
	return s.Now().UTC().Format(time.RFC3339)
}

func (s *TaskService) today() string {
	return s.Now().UTC().Format(time.DateOnly)
}

// CreateTaskRequest doubles as the update payload. On update, a nil
// AssigneeID unassigns and a nil ParentTaskID detaches from the hierarchy;
// this is deliberately different from project team semantics.
type CreateTaskRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Status         string  `json:"status"`
	Priority       string  `json:"priority"`
	DueDate        *string `json:"due_date,omitempty" format:"date"`
	EstimatedHours *int    `json:"estimated_hours,omitempty"`
	ProjectID      int64   `json:"project_id"`
	AssigneeID     *int64  `json:"assignee_id,omitempty"`
	ParentTaskID   *int64  `json:"parent_task_id,omitempty"`
}

func (s *TaskService) parseRequest(req CreateTaskRequest) (domain.TaskStatus, domain.TaskPriority, error) {
	if req.Title == "" {
		return "", "", invalidOp("task title is required")
	}
	status, err := domain.ParseTaskStatus(req.Status)
	if err != nil {
		return "", "", invalidOp("%v", err)
	}
	priority, err := domain.ParseTaskPriority(req.Priority)
	if err != nil {
		return "", "", invalidOp("%v", err)
	}
	return status, priority, nil
}

func (s *TaskService) requireProject(ctx context.Context, id int64) error {
	exists, err := s.Repo.ProjectExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("project %d not found", id)
	}
	return nil
}

func (s *TaskService) requireUser(ctx context.Context, id int64) error {
	exists, err := s.Repo.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("user %d not found", id)
	}
	return nil
}

func (s *TaskService) requireTask(ctx context.Context, id int64) error {
	exists, err := s.Repo.TaskExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("task %d not found", id)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, req CreateTaskRequest) (TaskDTO, error) {
	status, priority, err := s.parseRequest(req)
	if err != nil {
		return TaskDTO{}, err
	}
	if err := s.requireProject(ctx, req.ProjectID); err != nil {
		return TaskDTO{}, err
	}
	if req.AssigneeID != nil {
		if err := s.requireUser(ctx, *req.AssigneeID); err != nil {
			return TaskDTO{}, err
		}
	}
	if req.ParentTaskID != nil {
		if err := s.requireTask(ctx, *req.ParentTaskID); err != nil {
			return TaskDTO{}, err
		}
	}
	now := s.now()
	t := domain.Task{
		Title:          req.Title,
		Description:    req.Description,
		Status:         status,
		Priority:       priority,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		ProjectID:      req.ProjectID,
		AssigneeID:     req.AssigneeID,
		ParentTaskID:   req.ParentTaskID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	t.ID, err = s.Repo.InsertTask(ctx, t)
	if err != nil {
		return TaskDTO{}, err
	}
	dto, err := taskDTO(ctx, s.Repo, t)
	if err != nil {
		return TaskDTO{}, err
	}
	if err := s.Events.Publish(ctx, events.TopicTaskCreated, formatID(t.ID), dto); err != nil {
		return dto, err
	}
	return dto, nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, id int64) (TaskDTO, error) {
	t, err := s.Repo.GetTask(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return TaskDTO{}, notFound("task %d not found", id)
	}
	if err != nil {
		return TaskDTO{}, err
	}
	return taskDTO(ctx, s.Repo, t)
}

func (s *TaskService) ListTasks(ctx context.Context) ([]TaskDTO, error) {
	return s.list(ctx, repo.TaskFilters{})
}

func (s *TaskService) ListTasksByProject(ctx context.Context, projectID int64) ([]TaskDTO, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.list(ctx, repo.TaskFilters{ProjectID: projectID})
}

func (s *TaskService) ListTasksByAssignee(ctx context.Context, assigneeID int64) ([]TaskDTO, error) {
	if err := s.requireUser(ctx, assigneeID); err != nil {
		return nil, err
	}
	return s.list(ctx, repo.TaskFilters{AssigneeID: assigneeID})
}

func (s *TaskService) ListTasksByProjectAndStatus(ctx context.Context, projectID int64, status domain.TaskStatus) ([]TaskDTO, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.list(ctx, repo.TaskFilters{ProjectID: projectID, Status: status})
}

func (s *TaskService) ListTasksByAssigneeAndStatus(ctx context.Context, assigneeID int64, status domain.TaskStatus) ([]TaskDTO, error) {
	if err := s.requireUser(ctx, assigneeID); err != nil {
		return nil, err
	}
	return s.list(ctx, repo.TaskFilters{AssigneeID: assigneeID, Status: status})
}

func (s *TaskService) ListSubtasks(ctx context.Context, parentID int64) ([]TaskDTO, error) {
	if err := s.requireTask(ctx, parentID); err != nil {
		return nil, err
	}
	return s.list(ctx, repo.TaskFilters{ParentID: parentID})
}

// ListOverdueTasks returns tasks strictly past due at the clock's current
// date. A task due today is not overdue.
func (s *TaskService) ListOverdueTasks(ctx context.Context) ([]TaskDTO, error) {
	return s.list(ctx, repo.TaskFilters{DueBefore: s.today()})
}

func (s *TaskService) ListTasksByProjectAndDateRange(ctx context.Context, projectID int64, startDate, endDate string) ([]TaskDTO, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.list(ctx, repo.TaskFilters{ProjectID: projectID, DueFrom: startDate, DueTo: endDate})
}

func (s *TaskService) list(ctx context.Context, f repo.TaskFilters) ([]TaskDTO, error) {
	items, err := s.Repo.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	res := make([]TaskDTO, 0, len(items))
	for _, t := range items {
		dto, err := taskDTO(ctx, s.Repo, t)
		if err != nil {
			return nil, err
		}
		res = append(res, dto)
	}
	return res, nil
}

// UpdateTask fully replaces the mutable fields. Self-parenting is rejected
// before anything touches the store; indirect hierarchy cycles are rejected
// the same way.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, req CreateTaskRequest) (TaskDTO, error) {
	t, err := s.Repo.GetTask(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return TaskDTO{}, notFound("task %d not found", id)
	}
	if err != nil {
		return TaskDTO{}, err
	}
	status, priority, err := s.parseRequest(req)
	if err != nil {
		return TaskDTO{}, err
	}
	if err := s.requireProject(ctx, req.ProjectID); err != nil {
		return TaskDTO{}, err
	}
	if req.AssigneeID != nil {
		if err := s.requireUser(ctx, *req.AssigneeID); err != nil {
			return TaskDTO{}, err
		}
	}
	if req.ParentTaskID != nil {
		if *req.ParentTaskID == id {
			return TaskDTO{}, invalidOp("task %d cannot be its own parent", id)
		}
		if err := s.requireTask(ctx, *req.ParentTaskID); err != nil {
			return TaskDTO{}, err
		}
		if err := s.ensureNoCycle(ctx, *req.ParentTaskID, id); err != nil {
			return TaskDTO{}, err
		}
	}
	t.Title = req.Title
	t.Description = req.Description
	t.Status = status
	t.Priority = priority
	t.DueDate = req.DueDate
	t.EstimatedHours = req.EstimatedHours
	t.ProjectID = req.ProjectID
	t.AssigneeID = req.AssigneeID
	t.ParentTaskID = req.ParentTaskID
	t.UpdatedAt = s.now()
	if err := s.Repo.UpdateTask(ctx, t); err != nil {
		return TaskDTO{}, err
	}
	return s.publishUpdated(ctx, t)
}

// ensureNoCycle climbs the parent chain from parentID; if it reaches
// childID the new edge would close a loop.
func (s *TaskService) ensureNoCycle(ctx context.Context, parentID, childID int64) error {
	cur := parentID
	for {
		t, err := s.Repo.GetTask(ctx, cur)
		if err != nil {
			return err
		}
		if t.ParentTaskID == nil {
			return nil
		}
		if *t.ParentTaskID == childID {
			return invalidOp("task hierarchy cycle detected")
		}
		cur = *t.ParentTaskID
	}
}

func (s *TaskService) UpdateTaskStatus(ctx context.Context, id int64, status domain.TaskStatus) (TaskDTO, error) {
	if _, err := domain.ParseTaskStatus(string(status)); err != nil {
		return TaskDTO{}, invalidOp("%v", err)
	}
	t, err := s.Repo.GetTask(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return TaskDTO{}, notFound("task %d not found", id)
	}
	if err != nil {
		return TaskDTO{}, err
	}
	t.Status = status
	t.UpdatedAt = s.now()
	if err := s.Repo.UpdateTask(ctx, t); err != nil {
		return TaskDTO{}, err
	}
	return s.publishUpdated(ctx, t)
}

func (s *TaskService) AssignTask(ctx context.Context, id, assigneeID int64) (TaskDTO, error) {
	t, err := s.Repo.GetTask(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return TaskDTO{}, notFound("task %d not found", id)
	}
	if err != nil {
		return TaskDTO{}, err
	}
	if err := s.requireUser(ctx, assigneeID); err != nil {
		return TaskDTO{}, err
	}
	t.AssigneeID = &assigneeID
	t.UpdatedAt = s.now()
	if err := s.Repo.UpdateTask(ctx, t); err != nil {
		return TaskDTO{}, err
	}
	return s.publishUpdated(ctx, t)
}

// DeleteTask refuses to orphan subtasks.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	if err := s.requireTask(ctx, id); err != nil {
		return err
	}
	count, err := s.Repo.CountSubtasks(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return invalidOp("task %d has %d subtasks; delete or detach them first", id, count)
	}
	return s.Repo.DeleteTask(ctx, id)
}

func (s *TaskService) publishUpdated(ctx context.Context, t domain.Task) (TaskDTO, error) {
	dto, err := taskDTO(ctx, s.Repo, t)
	if err != nil {
		return TaskDTO{}, err
	}
	if err := s.Events.Publish(ctx, events.TopicTaskUpdated, formatID(t.ID), dto); err != nil {
		return dto, err
	}
	return dto, nil
}
