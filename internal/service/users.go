package service

import (
	"context"
	"errors"
	"time"

	"projectline/internal/domain"
	"projectline/internal/repo"
)

// UserService owns the uniqueness rules for user accounts. It knows nothing
// about projects or tasks.
type UserService struct {
	Repo repo.Repo
	Now  func() time.Time
}

func NewUserService(r repo.Repo) *UserService {
	return &UserService{Repo: r, Now: time.Now}
}

func (s *UserService) now() string {
	return s.Now().UTC().Format(time.RFC3339)
}

type CreateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (UserDTO, error) {
	if req.Username == "" {
		return UserDTO{}, invalidOp("username is required")
	}
	if req.Email == "" {
		return UserDTO{}, invalidOp("email is required")
	}
	role, err := domain.ParseUserRole(req.Role)
	if err != nil {
		return UserDTO{}, invalidOp("%v", err)
	}
	taken, err := s.Repo.UsernameTaken(ctx, req.Username)
	if err != nil {
		return UserDTO{}, err
	}
	if taken {
		return UserDTO{}, conflict("username %s already exists", req.Username)
	}
	taken, err = s.Repo.EmailTaken(ctx, req.Email)
	if err != nil {
		return UserDTO{}, err
	}
	if taken {
		return UserDTO{}, conflict("email %s already exists", req.Email)
	}
	now := s.now()
	u := domain.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.ID, err = s.Repo.InsertUser(ctx, u)
	if err != nil {
		return UserDTO{}, err
	}
	return userDTO(u), nil
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (UserDTO, error) {
	u, err := s.Repo.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, notFound("user %d not found", id)
	}
	if err != nil {
		return UserDTO{}, err
	}
	return userDTO(u), nil
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (UserDTO, error) {
	u, err := s.Repo.GetUserByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, notFound("user %s not found", username)
	}
	if err != nil {
		return UserDTO{}, err
	}
	return userDTO(u), nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]UserDTO, error) {
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]UserDTO, 0, len(users))
	for _, u := range users {
		res = append(res, userDTO(u))
	}
	return res, nil
}

// UpdateUser replaces the mutable fields. Username/email collisions count
// only against other users, so a no-op update always succeeds.
func (s *UserService) UpdateUser(ctx context.Context, id int64, req CreateUserRequest) (UserDTO, error) {
	u, err := s.Repo.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, notFound("user %d not found", id)
	}
	if err != nil {
		return UserDTO{}, err
	}
	role, err := domain.ParseUserRole(req.Role)
	if err != nil {
		return UserDTO{}, invalidOp("%v", err)
	}
	if req.Username != u.Username {
		taken, err := s.Repo.UsernameTaken(ctx, req.Username)
		if err != nil {
			return UserDTO{}, err
		}
		if taken {
			return UserDTO{}, conflict("username %s already exists", req.Username)
		}
	}
	if req.Email != u.Email {
		taken, err := s.Repo.EmailTaken(ctx, req.Email)
		if err != nil {
			return UserDTO{}, err
		}
		if taken {
			return UserDTO{}, conflict("email %s already exists", req.Email)
		}
	}
	u.Username = req.Username
	u.Email = req.Email
	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.Role = role
	u.UpdatedAt = s.now()
	if err := s.Repo.UpdateUser(ctx, u); err != nil {
		return UserDTO{}, err
	}
	return userDTO(u), nil
}

// DeactivateUser flips active off. Calling it twice is harmless.
func (s *UserService) DeactivateUser(ctx context.Context, id int64) error {
	u, err := s.Repo.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("user %d not found", id)
	}
	if err != nil {
		return err
	}
	u.Active = false
	u.UpdatedAt = s.now()
	return s.Repo.UpdateUser(ctx, u)
}

// DeleteUser is a hard delete. Referential safety against projects and
// tasks is the caller's concern.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	err := s.Repo.DeleteUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("user %d not found", id)
	}
	return err
}
