package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"projectline/internal/config"
	"projectline/internal/domain"
	"projectline/internal/events"
	"projectline/internal/repo"
)

// ProjectService manages projects, manager assignment and team membership.
// Every mutation validates its user references before anything is persisted.
type ProjectService struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Publisher
	Config *config.Config
	Now    func() time.Time
}

func NewProjectService(db *sql.DB, cfg *config.Config, pub events.Publisher) *ProjectService {
	return &ProjectService{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: pub,
		Config: cfg,
		Now:    time.Now,
	}
}

func (s *ProjectService) now() string {
	return s.Now().UTC().Format(time.RFC3339)
}

// CreateProjectRequest doubles as the update payload, mirroring the service
// contract. TeamMemberIDs nil leaves membership untouched on update; a
// non-nil empty slice clears it.
type CreateProjectRequest struct {
	Name                 string  `json:"name"`
	Description          string  `json:"description,omitempty"`
	StartDate            string  `json:"start_date" format:"date"`
	TargetEndDate        *string `json:"target_end_date,omitempty" format:"date"`
	Status               string  `json:"status"`
	EstimatedEffortHours int     `json:"estimated_effort_hours,omitempty"`
	ProjectManagerID     int64   `json:"project_manager_id"`
	TeamMemberIDs        []int64 `json:"team_member_ids,omitempty"`
}

func (s *ProjectService) validateRequest(ctx context.Context, req CreateProjectRequest) error {
	if req.Name == "" {
		return invalidOp("project name is required")
	}
	if req.StartDate == "" {
		return invalidOp("start date is required")
	}
	if !s.Config.StatusAllowed(req.Status) {
		return invalidOp("unknown project status %q", req.Status)
	}
	exists, err := s.Repo.UserExists(ctx, req.ProjectManagerID)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("project manager %d not found", req.ProjectManagerID)
	}
	return nil
}

// resolveTeam deduplicates and checks that every id resolves. The whole set
// fails together; no partial team is ever committed.
func (s *ProjectService) resolveTeam(ctx context.Context, ids []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	count, err := s.Repo.CountUsersByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if count != len(unique) {
		return nil, notFound("one or more team members not found")
	}
	return unique, nil
}

func (s *ProjectService) CreateProject(ctx context.Context, req CreateProjectRequest) (ProjectDTO, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return ProjectDTO{}, err
	}
	var team []int64
	if len(req.TeamMemberIDs) > 0 {
		var err error
		team, err = s.resolveTeam(ctx, req.TeamMemberIDs)
		if err != nil {
			return ProjectDTO{}, err
		}
	}
	now := s.now()
	p := domain.Project{
		Name:                 req.Name,
		Description:          req.Description,
		StartDate:            req.StartDate,
		TargetEndDate:        req.TargetEndDate,
		Status:               req.Status,
		EstimatedEffortHours: req.EstimatedEffortHours,
		ProjectManagerID:     req.ProjectManagerID,
		TeamMemberIDs:        team,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return ProjectDTO{}, err
	}
	defer tx.Rollback()
	p.ID, err = s.Repo.InsertProject(ctx, tx, p)
	if err != nil {
		return ProjectDTO{}, err
	}
	if len(team) > 0 {
		if err := s.Repo.ReplaceTeam(ctx, tx, p.ID, team); err != nil {
			return ProjectDTO{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ProjectDTO{}, err
	}
	dto, err := projectDTO(ctx, s.Repo, p)
	if err != nil {
		return ProjectDTO{}, err
	}
	if err := s.Events.Publish(ctx, events.TopicProjectCreated, formatID(p.ID), dto); err != nil {
		return dto, err
	}
	return dto, nil
}

func (s *ProjectService) GetProjectByID(ctx context.Context, id int64) (ProjectDTO, error) {
	p, err := s.Repo.GetProject(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ProjectDTO{}, notFound("project %d not found", id)
	}
	if err != nil {
		return ProjectDTO{}, err
	}
	return projectDTO(ctx, s.Repo, p)
}

func (s *ProjectService) ListProjects(ctx context.Context) ([]ProjectDTO, error) {
	items, err := s.Repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return s.projectDTOs(ctx, items)
}

func (s *ProjectService) ListProjectsByStatus(ctx context.Context, status string) ([]ProjectDTO, error) {
	items, err := s.Repo.ListProjectsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return s.projectDTOs(ctx, items)
}

func (s *ProjectService) ListProjectsByManager(ctx context.Context, managerID int64) ([]ProjectDTO, error) {
	exists, err := s.Repo.UserExists(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound("project manager %d not found", managerID)
	}
	items, err := s.Repo.ListProjectsByManager(ctx, managerID)
	if err != nil {
		return nil, err
	}
	return s.projectDTOs(ctx, items)
}

func (s *ProjectService) ListProjectsByTeamMember(ctx context.Context, userID int64) ([]ProjectDTO, error) {
	exists, err := s.Repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound("user %d not found", userID)
	}
	items, err := s.Repo.ListProjectsByTeamMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.projectDTOs(ctx, items)
}

func (s *ProjectService) projectDTOs(ctx context.Context, items []domain.Project) ([]ProjectDTO, error) {
	res := make([]ProjectDTO, 0, len(items))
	for _, p := range items {
		dto, err := projectDTO(ctx, s.Repo, p)
		if err != nil {
			return nil, err
		}
		res = append(res, dto)
	}
	return res, nil
}

// UpdateProject fully replaces the mutable fields. Membership is replaced
// only when TeamMemberIDs is non-nil; nil means "leave the team alone".
func (s *ProjectService) UpdateProject(ctx context.Context, id int64, req CreateProjectRequest) (ProjectDTO, error) {
	p, err := s.Repo.GetProject(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ProjectDTO{}, notFound("project %d not found", id)
	}
	if err != nil {
		return ProjectDTO{}, err
	}
	if err := s.validateRequest(ctx, req); err != nil {
		return ProjectDTO{}, err
	}
	replaceTeam := req.TeamMemberIDs != nil
	var team []int64
	if replaceTeam {
		team, err = s.resolveTeam(ctx, req.TeamMemberIDs)
		if err != nil {
			return ProjectDTO{}, err
		}
	}
	p.Name = req.Name
	p.Description = req.Description
	p.StartDate = req.StartDate
	p.TargetEndDate = req.TargetEndDate
	p.Status = req.Status
	p.EstimatedEffortHours = req.EstimatedEffortHours
	p.ProjectManagerID = req.ProjectManagerID
	p.UpdatedAt = s.now()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return ProjectDTO{}, err
	}
	defer tx.Rollback()
	if err := s.Repo.UpdateProject(ctx, tx, p); err != nil {
		return ProjectDTO{}, err
	}
	if replaceTeam {
		if err := s.Repo.ReplaceTeam(ctx, tx, p.ID, team); err != nil {
			return ProjectDTO{}, err
		}
		p.TeamMemberIDs = team
	}
	if err := tx.Commit(); err != nil {
		return ProjectDTO{}, err
	}
	dto, err := projectDTO(ctx, s.Repo, p)
	if err != nil {
		return ProjectDTO{}, err
	}
	if err := s.Events.Publish(ctx, events.TopicProjectUpdated, formatID(p.ID), dto); err != nil {
		return dto, err
	}
	return dto, nil
}

// DeleteProject refuses to orphan tasks: a project with tasks cannot be
// deleted until they are removed or moved.
func (s *ProjectService) DeleteProject(ctx context.Context, id int64) error {
	exists, err := s.Repo.ProjectExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("project %d not found", id)
	}
	count, err := s.Repo.CountTasksForProject(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return invalidOp("project %d has %d tasks; delete or reassign them first", id, count)
	}
	return s.Repo.DeleteProject(ctx, id)
}

// AddTeamMember is an idempotent set insert.
func (s *ProjectService) AddTeamMember(ctx context.Context, projectID, userID int64) (ProjectDTO, error) {
	if err := s.requireProjectAndUser(ctx, projectID, userID); err != nil {
		return ProjectDTO{}, err
	}
	if err := s.Repo.AddTeamMember(ctx, projectID, userID); err != nil {
		return ProjectDTO{}, err
	}
	if err := s.Repo.TouchProject(ctx, projectID, s.now()); err != nil {
		return ProjectDTO{}, err
	}
	return s.publishUpdated(ctx, projectID)
}

// RemoveTeamMember is an idempotent set delete.
func (s *ProjectService) RemoveTeamMember(ctx context.Context, projectID, userID int64) (ProjectDTO, error) {
	if err := s.requireProjectAndUser(ctx, projectID, userID); err != nil {
		return ProjectDTO{}, err
	}
	if err := s.Repo.RemoveTeamMember(ctx, projectID, userID); err != nil {
		return ProjectDTO{}, err
	}
	if err := s.Repo.TouchProject(ctx, projectID, s.now()); err != nil {
		return ProjectDTO{}, err
	}
	return s.publishUpdated(ctx, projectID)
}

func (s *ProjectService) UpdateProjectStatus(ctx context.Context, id int64, status string) (ProjectDTO, error) {
	if !s.Config.StatusAllowed(status) {
		return ProjectDTO{}, invalidOp("unknown project status %q", status)
	}
	err := s.Repo.SetProjectStatus(ctx, id, status, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return ProjectDTO{}, notFound("project %d not found", id)
	}
	if err != nil {
		return ProjectDTO{}, err
	}
	return s.publishUpdated(ctx, id)
}

func (s *ProjectService) requireProjectAndUser(ctx context.Context, projectID, userID int64) error {
	exists, err := s.Repo.ProjectExists(ctx, projectID)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("project %d not found", projectID)
	}
	exists, err = s.Repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("user %d not found", userID)
	}
	return nil
}

func (s *ProjectService) publishUpdated(ctx context.Context, id int64) (ProjectDTO, error) {
	p, err := s.Repo.GetProject(ctx, id)
	if err != nil {
		return ProjectDTO{}, err
	}
	dto, err := projectDTO(ctx, s.Repo, p)
	if err != nil {
		return ProjectDTO{}, err
	}
	if err := s.Events.Publish(ctx, events.TopicProjectUpdated, formatID(id), dto); err != nil {
		return dto, err
	}
	return dto, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
