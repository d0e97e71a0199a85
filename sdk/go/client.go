package projectlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Projectline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "v1",
		Timeout:  10 * time.Second,
	}
}

// User represents the API user model.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
}

// Project represents the API project model (partial).
type Project struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	StartDate      string `json:"start_date"`
	Status         string `json:"status"`
	ProjectManager User   `json:"project_manager"`
	TeamMembers    []User `json:"team_members,omitempty"`
}

// Task represents the API task model (partial).
type Task struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Status       string  `json:"status"`
	Priority     string  `json:"priority"`
	DueDate      *string `json:"due_date,omitempty"`
	ProjectID    int64   `json:"project_id"`
	Assignee     *User   `json:"assignee,omitempty"`
	ParentTaskID *int64  `json:"parent_task_id,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateUser creates a user account.
func (c *Client) CreateUser(ctx context.Context, username, email, firstName, lastName, role string) (User, error) {
	body := map[string]any{
		"username":   username,
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
		"role":       role,
	}
	var resp User
	err := c.do(ctx, http.MethodPost, c.path("users"), body, &resp)
	return resp, err
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, id int64) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, c.path(fmt.Sprintf("users/%d", id)), nil, &resp)
	return resp, err
}

// ListUsers returns all accounts, active and inactive.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp []User
	err := c.do(ctx, http.MethodGet, c.path("users"), nil, &resp)
	return resp, err
}

// CreateProject creates a project managed by managerID.
func (c *Client) CreateProject(ctx context.Context, name, startDate, status string, managerID int64, teamMemberIDs []int64) (Project, error) {
	body := map[string]any{
		"name":               name,
		"start_date":         startDate,
		"status":             status,
		"project_manager_id": managerID,
	}
	if teamMemberIDs != nil {
		body["team_member_ids"] = teamMemberIDs
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, c.path("projects"), body, &resp)
	return resp, err
}

// CreateTask creates a task in a project.
func (c *Client) CreateTask(ctx context.Context, projectID int64, title, status, priority string) (Task, error) {
	body := map[string]any{
		"project_id": projectID,
		"title":      title,
		"status":     status,
		"priority":   priority,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, c.path("tasks"), body, &resp)
	return resp, err
}

// AssignTask assigns a task to a user.
func (c *Client) AssignTask(ctx context.Context, taskID, userID int64) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPut, c.path(fmt.Sprintf("tasks/%d/assignee/%d", taskID, userID)), nil, &resp)
	return resp, err
}

// UpdateTaskStatus moves a task to the given status.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID int64, status string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, c.path(fmt.Sprintf("tasks/%d/status", taskID)), map[string]any{"status": status}, &resp)
	return resp, err
}

// ListProjectTasks lists the tasks of a project, optionally by status.
func (c *Client) ListProjectTasks(ctx context.Context, projectID int64, status string) ([]Task, error) {
	endpoint := c.path(fmt.Sprintf("projects/%d/tasks", projectID))
	if status != "" {
		endpoint += "?status=" + status
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ListOverdueTasks lists tasks strictly past their due date.
func (c *Client) ListOverdueTasks(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, c.path("tasks/overdue"), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) path(p string) string {
	return strings.Trim(c.BasePath, "/") + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
