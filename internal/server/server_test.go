package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"projectline/internal/config"
	"projectline/internal/db"
	"projectline/internal/events"
	"projectline/internal/migrate"
	"projectline/internal/repo"
	"projectline/internal/service"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pub := events.Publisher{Transport: &events.MemoryTransport{}}
	r := repo.Repo{DB: conn}
	handler, err := New(Config{
		Users:    service.NewUserService(r),
		Projects: service.NewProjectService(conn, config.Default(), pub),
		Tasks:    service.NewTaskService(r, pub),
		BasePath: "/v1",
		Auth:     auth,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(testSrv.Close)
	return testSrv
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func createUser(t *testing.T, srv *testServer, username, role string) service.UserDTO {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/users", map[string]any{
		"username":   username,
		"email":      username + "@example.com",
		"first_name": "Test",
		"last_name":  "User",
		"role":       role,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create user %s: %d %s", username, res.StatusCode, string(data))
	}
	var u service.UserDTO
	if err := json.Unmarshal(data, &u); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}
	return u
}

func TestUserEndpoints(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	client := srv.Client()

	alice := createUser(t, srv, "alice", "DEVELOPER")

	// duplicate username conflicts
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/users", map[string]any{
		"username":   "alice",
		"email":      "other@example.com",
		"first_name": "Other",
		"last_name":  "Alice",
		"role":       "TESTER",
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/users/username/alice", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get by username: %d %s", res.StatusCode, string(data))
	}
	var fetched service.UserDTO
	if err := json.Unmarshal(data, &fetched); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fetched.ID != alice.ID {
		t.Fatalf("expected user %d, got %d", alice.ID, fetched.ID)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/users/999", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/users/"+formatID(alice.ID)+"/deactivate", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("deactivate: %d %s", res.StatusCode, string(data))
	}
	var deactivated service.UserDTO
	_ = json.Unmarshal(data, &deactivated)
	if deactivated.Active {
		t.Fatal("expected inactive user")
	}
}

func TestProjectAndTaskEndpoints(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	client := srv.Client()

	pm := createUser(t, srv, "pm", "PROJECT_MANAGER")
	dev := createUser(t, srv, "dev", "DEVELOPER")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"name":               "Apollo",
		"start_date":         "2024-03-01",
		"status":             "PLANNED",
		"project_manager_id": pm.ID,
		"team_member_ids":    []int64{dev.ID},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create project: %d %s", res.StatusCode, string(data))
	}
	var project service.ProjectDTO
	if err := json.Unmarshal(data, &project); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}
	if project.ProjectManager.ID != pm.ID || len(project.TeamMembers) != 1 {
		t.Fatalf("unexpected project shape: %+v", project)
	}

	// unknown team member is atomic: nothing created
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"name":               "Ghost",
		"start_date":         "2024-03-01",
		"status":             "PLANNED",
		"project_manager_id": pm.ID,
		"team_member_ids":    []int64{dev.ID, 999},
	}, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on unknown member, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"title":      "Ship feature",
		"status":     "TODO",
		"priority":   "HIGH",
		"project_id": project.ID,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}
	var task service.TaskDTO
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}

	// self-parenting is rejected
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/tasks/"+formatID(task.ID), map[string]any{
		"title":          "Ship feature",
		"status":         "TODO",
		"priority":       "HIGH",
		"project_id":     project.ID,
		"parent_task_id": task.ID,
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on self-parent, got %d %s", res.StatusCode, string(data))
	}

	// deleting a project with tasks is blocked
	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/projects/"+formatID(project.ID), nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on delete with tasks, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/tasks/"+formatID(task.ID)+"/assignee/"+formatID(dev.ID), nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("assign task: %d %s", res.StatusCode, string(data))
	}
	var assigned service.TaskDTO
	_ = json.Unmarshal(data, &assigned)
	if assigned.Assignee == nil || assigned.Assignee.ID != dev.ID {
		t.Fatalf("expected assignee %d, got %+v", dev.ID, assigned.Assignee)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/users/"+formatID(dev.ID)+"/tasks?status=TODO", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list user tasks: %d %s", res.StatusCode, string(data))
	}
	var assignedTasks []service.TaskDTO
	if err := json.Unmarshal(data, &assignedTasks); err != nil {
		t.Fatalf("unmarshal tasks: %v", err)
	}
	if len(assignedTasks) != 1 {
		t.Fatalf("expected 1 task for dev, got %d", len(assignedTasks))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/"+formatID(task.ID)+"/status", map[string]any{
		"status": "IN_PROGRESS",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status update: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/"+formatID(task.ID)+"/status", map[string]any{
		"status": "NOPE",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad status, got %d %s", res.StatusCode, string(data))
	}
}

func TestBearerAuth(t *testing.T) {
	secret := "test-secret"
	srv := newTestServer(t, AuthConfig{JWTSecret: secret})
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/users", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d %s", res.StatusCode, string(data))
	}

	// health stays open
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health must not require auth, got %d", res.StatusCode)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "tester",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"PMO"},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/users", nil, map[string]string{
		"Authorization": "Bearer " + signed,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/users", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d %s", res.StatusCode, string(data))
	}
}
