package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"projectline/internal/config"
	"projectline/internal/db"
	"projectline/internal/domain"
	"projectline/internal/events"
	"projectline/internal/migrate"
	"projectline/internal/repo"
	"projectline/internal/service"
)

type testEnv struct {
	Users     *service.UserService
	Projects  *service.ProjectService
	Tasks     *service.TaskService
	Transport *events.MemoryTransport
	Ctx       context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clock := func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	mem := &events.MemoryTransport{}
	pub := events.Publisher{Transport: mem}
	r := repo.Repo{DB: conn}

	users := service.NewUserService(r)
	users.Now = clock
	projects := service.NewProjectService(conn, config.Default(), pub)
	projects.Now = clock
	tasks := service.NewTaskService(r, pub)
	tasks.Now = clock

	return testEnv{Users: users, Projects: projects, Tasks: tasks, Transport: mem, Ctx: context.Background()}
}

func (env testEnv) seedUser(t *testing.T, username, role string) int64 {
	t.Helper()
	u, err := env.Users.CreateUser(env.Ctx, service.CreateUserRequest{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u.ID
}

func (env testEnv) seedProject(t *testing.T, name string, managerID int64, team ...int64) int64 {
	t.Helper()
	p, err := env.Projects.CreateProject(env.Ctx, service.CreateProjectRequest{
		Name:             name,
		StartDate:        "2024-03-01",
		Status:           "PLANNED",
		ProjectManagerID: managerID,
		TeamMemberIDs:    team,
	})
	if err != nil {
		t.Fatalf("seed project %s: %v", name, err)
	}
	return p.ID
}

func (env testEnv) seedTask(t *testing.T, title string, projectID int64) int64 {
	t.Helper()
	task, err := env.Tasks.CreateTask(env.Ctx, service.CreateTaskRequest{
		Title:     title,
		Status:    "TODO",
		Priority:  "MEDIUM",
		ProjectID: projectID,
	})
	if err != nil {
		t.Fatalf("seed task %s: %v", title, err)
	}
	return task.ID
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "DEVELOPER")
	_, err := env.Users.CreateUser(env.Ctx, service.CreateUserRequest{
		Username:  "alice",
		Email:     "other@example.com",
		FirstName: "Other",
		LastName:  "Alice",
		Role:      "TESTER",
	})
	var conflict service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	users, err := env.Users.ListUsers(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user after rejected duplicate, got %d", len(users))
	}
}

func TestUpdateUserUniquenessIgnoresSelf(t *testing.T) {
	env := newTestEnv(t)
	aliceID := env.seedUser(t, "alice", "DEVELOPER")
	env.seedUser(t, "bob", "TESTER")

	// keeping your own username is not a collision
	u, err := env.Users.UpdateUser(env.Ctx, aliceID, service.CreateUserRequest{
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Renamed",
		Role:      "DEVELOPER",
	})
	if err != nil {
		t.Fatalf("update with own username: %v", err)
	}
	if u.LastName != "Renamed" {
		t.Fatalf("expected last name change, got %q", u.LastName)
	}

	// taking someone else's is
	_, err = env.Users.UpdateUser(env.Ctx, aliceID, service.CreateUserRequest{
		Username:  "bob",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "User",
		Role:      "DEVELOPER",
	})
	var conflict service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on taken username, got %v", err)
	}
}

func TestDeactivateUserStillListed(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedUser(t, "alice", "DEVELOPER")
	if err := env.Users.DeactivateUser(env.Ctx, id); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	u, err := env.Users.GetUserByID(env.Ctx, id)
	if err != nil {
		t.Fatalf("get after deactivate: %v", err)
	}
	if u.Active {
		t.Fatal("expected inactive user")
	}
	users, err := env.Users.ListUsers(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("deactivated user must still list, got %d users", len(users))
	}
}

func TestDeleteUserHardRemoves(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedUser(t, "alice", "DEVELOPER")
	if err := env.Users.DeleteUser(env.Ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := env.Users.GetUserByID(env.Ctx, id)
	var nf service.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := env.Users.DeleteUser(env.Ctx, id); err == nil {
		t.Fatal("expected not found on second delete")
	}
}

func TestCreateProjectTeamResolutionIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	dev := env.seedUser(t, "dev", "DEVELOPER")

	_, err := env.Projects.CreateProject(env.Ctx, service.CreateProjectRequest{
		Name:             "Apollo",
		StartDate:        "2024-03-01",
		Status:           "PLANNED",
		ProjectManagerID: manager,
		TeamMemberIDs:    []int64{dev, 999},
	})
	var nf service.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found on unknown member, got %v", err)
	}
	projects, err := env.Projects.ListProjects(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 0 {
		t.Fatalf("failed create must persist nothing, got %d projects", len(projects))
	}
}

func TestUpdateProjectTeamSemantics(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	dev := env.seedUser(t, "dev", "DEVELOPER")
	id := env.seedProject(t, "Apollo", manager, dev)

	base := service.CreateProjectRequest{
		Name:             "Apollo",
		StartDate:        "2024-03-01",
		Status:           "ACTIVE",
		ProjectManagerID: manager,
	}

	// nil team leaves membership untouched
	p, err := env.Projects.UpdateProject(env.Ctx, id, base)
	if err != nil {
		t.Fatalf("update without team: %v", err)
	}
	if len(p.TeamMembers) != 1 {
		t.Fatalf("nil team must not touch membership, got %d members", len(p.TeamMembers))
	}

	// empty team clears it
	req := base
	req.TeamMemberIDs = []int64{}
	p, err = env.Projects.UpdateProject(env.Ctx, id, req)
	if err != nil {
		t.Fatalf("update clearing team: %v", err)
	}
	if len(p.TeamMembers) != 0 {
		t.Fatalf("empty team must clear membership, got %d members", len(p.TeamMembers))
	}
}

func TestAddTeamMemberIdempotent(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	dev := env.seedUser(t, "dev", "DEVELOPER")
	id := env.seedProject(t, "Apollo", manager)

	for i := 0; i < 2; i++ {
		p, err := env.Projects.AddTeamMember(env.Ctx, id, dev)
		if err != nil {
			t.Fatalf("add member round %d: %v", i, err)
		}
		if len(p.TeamMembers) != 1 {
			t.Fatalf("round %d: expected 1 member, got %d", i, len(p.TeamMembers))
		}
	}
	p, err := env.Projects.RemoveTeamMember(env.Ctx, id, dev)
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if len(p.TeamMembers) != 0 {
		t.Fatalf("expected empty team, got %d", len(p.TeamMembers))
	}
	// removing again is a no-op
	if _, err := env.Projects.RemoveTeamMember(env.Ctx, id, dev); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestDeleteProjectBlockedByTasks(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	id := env.seedProject(t, "Apollo", manager)
	taskID := env.seedTask(t, "work", id)

	err := env.Projects.DeleteProject(env.Ctx, id)
	var invalid service.InvalidOperationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
	if err := env.Tasks.DeleteTask(env.Ctx, taskID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := env.Projects.DeleteProject(env.Ctx, id); err != nil {
		t.Fatalf("delete after tasks removed: %v", err)
	}
}

func TestListProjectsByTeamMember(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	dev := env.seedUser(t, "dev", "DEVELOPER")
	env.seedProject(t, "Apollo", manager, dev)
	env.seedProject(t, "Borealis", manager)

	projects, err := env.Projects.ListProjectsByTeamMember(env.Ctx, dev)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Name != "Apollo" {
		t.Fatalf("expected only Apollo, got %+v", projects)
	}
	if _, err := env.Projects.ListProjectsByTeamMember(env.Ctx, 999); err == nil {
		t.Fatal("expected not found for unknown user")
	}
}

func TestTaskSelfParentRejected(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	projectID := env.seedProject(t, "Apollo", manager)
	taskID := env.seedTask(t, "solo", projectID)

	_, err := env.Tasks.UpdateTask(env.Ctx, taskID, service.CreateTaskRequest{
		Title:        "solo",
		Status:       "TODO",
		Priority:     "MEDIUM",
		ProjectID:    projectID,
		ParentTaskID: &taskID,
	})
	var invalid service.InvalidOperationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
	task, err := env.Tasks.GetTaskByID(env.Ctx, taskID)
	if err != nil {
		t.Fatal(err)
	}
	if task.ParentTaskID != nil {
		t.Fatal("rejected update must not persist a parent")
	}
}

func TestTaskHierarchyCycleRejected(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	projectID := env.seedProject(t, "Apollo", manager)
	a := env.seedTask(t, "a", projectID)
	b := env.seedTask(t, "b", projectID)

	reparent := func(id int64, parent *int64) error {
		_, err := env.Tasks.UpdateTask(env.Ctx, id, service.CreateTaskRequest{
			Title:        "t",
			Status:       "TODO",
			Priority:     "MEDIUM",
			ProjectID:    projectID,
			ParentTaskID: parent,
		})
		return err
	}
	if err := reparent(b, &a); err != nil {
		t.Fatalf("b under a: %v", err)
	}
	err := reparent(a, &b)
	var invalid service.InvalidOperationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected cycle rejection, got %v", err)
	}
}

func TestUpdateTaskClearsAssigneeAndParent(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	dev := env.seedUser(t, "dev", "DEVELOPER")
	projectID := env.seedProject(t, "Apollo", manager)
	parent := env.seedTask(t, "parent", projectID)

	child, err := env.Tasks.CreateTask(env.Ctx, service.CreateTaskRequest{
		Title:        "child",
		Status:       "TODO",
		Priority:     "HIGH",
		ProjectID:    projectID,
		AssigneeID:   &dev,
		ParentTaskID: &parent,
	})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if child.Assignee == nil || child.ParentTaskID == nil {
		t.Fatal("expected assignee and parent set")
	}

	// omitting both clears both
	updated, err := env.Tasks.UpdateTask(env.Ctx, child.ID, service.CreateTaskRequest{
		Title:     "child",
		Status:    "TODO",
		Priority:  "HIGH",
		ProjectID: projectID,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Assignee != nil {
		t.Fatal("expected assignee cleared")
	}
	if updated.ParentTaskID != nil {
		t.Fatal("expected parent cleared")
	}
}

func TestAssignTask(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	dev := env.seedUser(t, "dev", "DEVELOPER")
	projectID := env.seedProject(t, "Apollo", manager)
	taskID := env.seedTask(t, "work", projectID)

	task, err := env.Tasks.AssignTask(env.Ctx, taskID, dev)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if task.Assignee == nil || task.Assignee.ID != dev {
		t.Fatalf("expected assignee %d, got %+v", dev, task.Assignee)
	}
	if _, err := env.Tasks.AssignTask(env.Ctx, taskID, 999); err == nil {
		t.Fatal("expected not found for unknown assignee")
	}
	byAssignee, err := env.Tasks.ListTasksByAssignee(env.Ctx, dev)
	if err != nil {
		t.Fatal(err)
	}
	if len(byAssignee) != 1 {
		t.Fatalf("expected 1 task for assignee, got %d", len(byAssignee))
	}
}

func TestOverdueExcludesDueToday(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	projectID := env.seedProject(t, "Apollo", manager)

	// clock is fixed at 2024-03-15
	due := func(d string) *string { return &d }
	for i, d := range []*string{due("2024-03-14"), due("2024-03-15"), due("2024-03-16"), nil} {
		_, err := env.Tasks.CreateTask(env.Ctx, service.CreateTaskRequest{
			Title:     fmt.Sprintf("task-%d", i),
			Status:    "TODO",
			Priority:  "LOW",
			ProjectID: projectID,
			DueDate:   d,
		})
		if err != nil {
			t.Fatalf("create task %d: %v", i, err)
		}
	}
	overdue, err := env.Tasks.ListOverdueTasks(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 1 {
		t.Fatalf("expected exactly the yesterday task, got %d", len(overdue))
	}
	if overdue[0].DueDate == nil || *overdue[0].DueDate != "2024-03-14" {
		t.Fatalf("wrong overdue task: %+v", overdue[0])
	}
}

func TestListTasksByProjectAndDateRange(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	projectID := env.seedProject(t, "Apollo", manager)

	for _, d := range []string{"2024-03-01", "2024-03-10", "2024-03-20"} {
		d := d
		_, err := env.Tasks.CreateTask(env.Ctx, service.CreateTaskRequest{
			Title:     "due " + d,
			Status:    "TODO",
			Priority:  "LOW",
			ProjectID: projectID,
			DueDate:   &d,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	tasks, err := env.Tasks.ListTasksByProjectAndDateRange(env.Ctx, projectID, "2024-03-05", "2024-03-15")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || *tasks[0].DueDate != "2024-03-10" {
		t.Fatalf("expected only the mid task, got %+v", tasks)
	}
	if _, err := env.Tasks.ListTasksByProjectAndDateRange(env.Ctx, 999, "2024-03-05", "2024-03-15"); err == nil {
		t.Fatal("expected not found for unknown project")
	}
}

func TestDeleteTaskBlockedBySubtasks(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	projectID := env.seedProject(t, "Apollo", manager)
	parent := env.seedTask(t, "parent", projectID)
	_, err := env.Tasks.CreateTask(env.Ctx, service.CreateTaskRequest{
		Title:        "child",
		Status:       "TODO",
		Priority:     "LOW",
		ProjectID:    projectID,
		ParentTaskID: &parent,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = env.Tasks.DeleteTask(env.Ctx, parent)
	var invalid service.InvalidOperationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
	subtasks, err := env.Tasks.ListSubtasks(env.Ctx, parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(subtasks) != 1 {
		t.Fatalf("expected 1 subtask, got %d", len(subtasks))
	}
}

func TestTaskStatusFilters(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	projectID := env.seedProject(t, "Apollo", manager)
	taskID := env.seedTask(t, "work", projectID)
	env.seedTask(t, "other", projectID)

	if _, err := env.Tasks.UpdateTaskStatus(env.Ctx, taskID, domain.TaskInProgress); err != nil {
		t.Fatalf("status update: %v", err)
	}
	inProgress, err := env.Tasks.ListTasksByProjectAndStatus(env.Ctx, projectID, domain.TaskInProgress)
	if err != nil {
		t.Fatal(err)
	}
	if len(inProgress) != 1 || inProgress[0].ID != taskID {
		t.Fatalf("expected the moved task, got %+v", inProgress)
	}
}

func TestMutationEvents(t *testing.T) {
	env := newTestEnv(t)
	manager := env.seedUser(t, "pm", "PROJECT_MANAGER")
	projectID := env.seedProject(t, "Apollo", manager)
	taskID := env.seedTask(t, "work", projectID)
	if _, err := env.Tasks.UpdateTaskStatus(env.Ctx, taskID, domain.TaskDone); err != nil {
		t.Fatalf("status update: %v", err)
	}
	if _, err := env.Projects.UpdateProjectStatus(env.Ctx, projectID, "ACTIVE"); err != nil {
		t.Fatalf("project status update: %v", err)
	}

	var topics []string
	var keys []string
	for _, rec := range env.Transport.Records() {
		topics = append(topics, rec.Topic)
		keys = append(keys, rec.Key)
	}
	want := []string{
		events.TopicProjectCreated,
		events.TopicTaskCreated,
		events.TopicTaskUpdated,
		events.TopicProjectUpdated,
	}
	if len(topics) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), topics)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Fatalf("event %d: expected topic %s, got %s", i, want[i], topics[i])
		}
	}
	if keys[0] != fmt.Sprintf("%d", projectID) || keys[1] != fmt.Sprintf("%d", taskID) {
		t.Fatalf("expected stringified entity ids as keys, got %v", keys)
	}
}
