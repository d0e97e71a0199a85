package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"projectline/internal/domain"
	"projectline/internal/events"
	"projectline/internal/repo"
	"projectline/internal/service"
)

// Config for the HTTP API handler.
type Config struct {
	Users    *service.UserService
	Projects *service.ProjectService
	Tasks    *service.TaskService
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"task 42 not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Projectline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Projectline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerUsers(group, cfg.Users, cfg.Tasks)
	registerProjects(group, cfg.Projects, cfg.Tasks)
	registerTasks(group, cfg.Tasks)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var nf service.NotFoundError
	if errors.As(err, &nf) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	var conflict service.ConflictError
	if errors.As(err, &conflict) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	var invalid service.InvalidOperationError
	if errors.As(err, &invalid) {
		return newAPIError(http.StatusBadRequest, "invalid_operation", err.Error(), nil)
	}
	var serr events.SerializationError
	if errors.As(err, &serr) {
		return newAPIError(http.StatusInternalServerError, "serialization_failed", err.Error(), map[string]any{"topic": serr.Topic})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Status string `json:"status" example:"ok"`
		} `json:"body"`
	}, error) {
		out := &struct {
			Body struct {
				Status string `json:"status" example:"ok"`
			} `json:"body"`
		}{}
		out.Body.Status = "ok"
		return out, nil
	})
}

func registerUsers(api huma.API, users *service.UserService, tasks *service.TaskService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-user",
		Method:      http.MethodPost,
		Path:        "/users",
		Summary:     "Create user",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body service.CreateUserRequest `json:"body"`
	}) (*struct {
		Body service.UserDTO `json:"body"`
	}, error) {
		u, err := users.CreateUser(ctx, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.UserDTO `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []service.UserDTO `json:"body"`
	}, error) {
		items, err := users.ListUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []service.UserDTO `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID int64 `path:"user_id"`
	}) (*struct {
		Body service.UserDTO `json:"body"`
	}, error) {
		u, err := users.GetUserByID(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.UserDTO `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user-by-username",
		Method:      http.MethodGet,
		Path:        "/users/username/{username}",
		Summary:     "Get user by username",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Username string `path:"username"`
	}) (*struct {
		Body service.UserDTO `json:"body"`
	}, error) {
		u, err := users.GetUserByUsername(ctx, input.Username)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.UserDTO `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPut,
		Path:        "/users/{user_id}",
		Summary:     "Update user",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		UserID int64                     `path:"user_id"`
		Body   service.CreateUserRequest `json:"body"`
	}) (*struct {
		Body service.UserDTO `json:"body"`
	}, error) {
		u, err := users.UpdateUser(ctx, input.UserID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.UserDTO `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-user",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/deactivate",
		Summary:     "Deactivate user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID int64 `path:"user_id"`
	}) (*struct {
		Body service.UserDTO `json:"body"`
	}, error) {
		if err := users.DeactivateUser(ctx, input.UserID); err != nil {
			return nil, handleError(err)
		}
		u, err := users.GetUserByID(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.UserDTO `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-user",
		Method:      http.MethodDelete,
		Path:        "/users/{user_id}",
		Summary:     "Delete user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID int64 `path:"user_id"`
	}) (*struct{}, error) {
		if err := users.DeleteUser(ctx, input.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-user-tasks",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/tasks",
		Summary:     "List tasks assigned to a user",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID int64  `path:"user_id"`
		Status string `query:"status"`
	}) (*struct {
		Body []service.TaskDTO `json:"body"`
	}, error) {
		var items []service.TaskDTO
		var err error
		if input.Status != "" {
			status, perr := domain.ParseTaskStatus(input.Status)
			if perr != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", perr.Error(), nil)
			}
			items, err = tasks.ListTasksByAssigneeAndStatus(ctx, input.UserID, status)
		} else {
			items, err = tasks.ListTasksByAssignee(ctx, input.UserID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []service.TaskDTO `json:"body"`
		}{Body: items}, nil
	})
}

func registerProjects(api huma.API, projects *service.ProjectService, tasks *service.TaskService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-project",
		Method:      http.MethodPost,
		Path:        "/projects",
		Summary:     "Create project",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body service.CreateProjectRequest `json:"body"`
	}) (*struct {
		Body service.ProjectDTO `json:"body"`
	}, error) {
		p, err := projects.CreateProject(ctx, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ProjectDTO `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Description: "Optionally filter by status, managing user or team member. Filters are mutually exclusive.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Status    string `query:"status"`
		ManagerID int64  `query:"manager_id"`
		MemberID  int64  `query:"member_id"`
	}) (*struct {
		Body []service.ProjectDTO `json:"body"`
	}, error) {
		var items []service.ProjectDTO
		var err error
		switch {
		case input.Status != "":
			items, err = projects.ListProjectsByStatus(ctx, input.Status)
		case input.ManagerID != 0:
			items, err = projects.ListProjectsByManager(ctx, input.ManagerID)
		case input.MemberID != 0:
			items, err = projects.ListProjectsByTeamMember(ctx, input.MemberID)
		default:
			items, err = projects.ListProjects(ctx)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []service.ProjectDTO `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
	}) (*struct {
		Body service.ProjectDTO `json:"body"`
	}, error) {
		p, err := projects.GetProjectByID(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ProjectDTO `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}",
		Summary:     "Update project",
		Description: "Full replace of the mutable fields. Omitting team_member_ids keeps the current team; an empty list clears it.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64                        `path:"project_id"`
		Body      service.CreateProjectRequest `json:"body"`
	}) (*struct {
		Body service.ProjectDTO `json:"body"`
	}, error) {
		p, err := projects.UpdateProject(ctx, input.ProjectID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ProjectDTO `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project-status",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/status",
		Summary:     "Update project status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
		Body      struct {
			Status string `json:"status"`
		} `json:"body"`
	}) (*struct {
		Body service.ProjectDTO `json:"body"`
	}, error) {
		p, err := projects.UpdateProjectStatus(ctx, input.ProjectID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ProjectDTO `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}",
		Summary:     "Delete project",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
	}) (*struct{}, error) {
		if err := projects.DeleteProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-team-member",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}/team/{user_id}",
		Summary:     "Add team member",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
		UserID    int64 `path:"user_id"`
	}) (*struct {
		Body service.ProjectDTO `json:"body"`
	}, error) {
		p, err := projects.AddTeamMember(ctx, input.ProjectID, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ProjectDTO `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-team-member",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}/team/{user_id}",
		Summary:     "Remove team member",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"project_id"`
		UserID    int64 `path:"user_id"`
	}) (*struct {
		Body service.ProjectDTO `json:"body"`
	}, error) {
		p, err := projects.RemoveTeamMember(ctx, input.ProjectID, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ProjectDTO `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-project-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "List tasks in a project",
		Description: "Optionally filter by status, or by a due date window when both start_date and end_date are given.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID int64  `path:"project_id"`
		Status    string `query:"status"`
		StartDate string `query:"start_date"`
		EndDate   string `query:"end_date"`
	}) (*struct {
		Body []service.TaskDTO `json:"body"`
	}, error) {
		var items []service.TaskDTO
		var err error
		switch {
		case input.Status != "":
			status, perr := domain.ParseTaskStatus(input.Status)
			if perr != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", perr.Error(), nil)
			}
			items, err = tasks.ListTasksByProjectAndStatus(ctx, input.ProjectID, status)
		case input.StartDate != "" && input.EndDate != "":
			items, err = tasks.ListTasksByProjectAndDateRange(ctx, input.ProjectID, input.StartDate, input.EndDate)
		case input.StartDate != "" || input.EndDate != "":
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "start_date and end_date are required together", nil)
		default:
			items, err = tasks.ListTasksByProject(ctx, input.ProjectID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []service.TaskDTO `json:"body"`
		}{Body: items}, nil
	})
}

func registerTasks(api huma.API, tasks *service.TaskService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-task",
		Method:      http.MethodPost,
		Path:        "/tasks",
		Summary:     "Create task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body service.CreateTaskRequest `json:"body"`
	}) (*struct {
		Body service.TaskDTO `json:"body"`
	}, error) {
		task, err := tasks.CreateTask(ctx, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.TaskDTO `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []service.TaskDTO `json:"body"`
	}, error) {
		items, err := tasks.ListTasks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []service.TaskDTO `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-overdue-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/overdue",
		Summary:     "List overdue tasks",
		Description: "Tasks whose due date is strictly before today. Tasks due today are not overdue.",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []service.TaskDTO `json:"body"`
	}, error) {
		items, err := tasks.ListOverdueTasks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []service.TaskDTO `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID int64 `path:"task_id"`
	}) (*struct {
		Body service.TaskDTO `json:"body"`
	}, error) {
		task, err := tasks.GetTaskByID(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.TaskDTO `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-subtasks",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/subtasks",
		Summary:     "List subtasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID int64 `path:"task_id"`
	}) (*struct {
		Body []service.TaskDTO `json:"body"`
	}, error) {
		items, err := tasks.ListSubtasks(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []service.TaskDTO `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task",
		Description: "Full replace of the mutable fields. Omitting assignee_id unassigns; omitting parent_task_id detaches from the hierarchy.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID int64                     `path:"task_id"`
		Body   service.CreateTaskRequest `json:"body"`
	}) (*struct {
		Body service.TaskDTO `json:"body"`
	}, error) {
		task, err := tasks.UpdateTask(ctx, input.TaskID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.TaskDTO `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}/status",
		Summary:     "Update task status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID int64 `path:"task_id"`
		Body   struct {
			Status string `json:"status"`
		} `json:"body"`
	}) (*struct {
		Body service.TaskDTO `json:"body"`
	}, error) {
		task, err := tasks.UpdateTaskStatus(ctx, input.TaskID, domain.TaskStatus(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.TaskDTO `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}/assignee/{user_id}",
		Summary:     "Assign task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID int64 `path:"task_id"`
		UserID int64 `path:"user_id"`
	}) (*struct {
		Body service.TaskDTO `json:"body"`
	}, error) {
		task, err := tasks.AssignTask(ctx, input.TaskID, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.TaskDTO `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID int64 `path:"task_id"`
	}) (*struct{}, error) {
		if err := tasks.DeleteTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Projectline API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css"/>
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.onload = () => {
        window.ui = SwaggerUIBundle({url: %q, dom_id: "#swagger-ui"});
      };
    </script>
  </body>
</html>`, specURL)
}
