package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"projectline/internal/config"
	"projectline/internal/db"
	"projectline/internal/domain"
	"projectline/internal/events"
	"projectline/internal/migrate"
	"projectline/internal/repo"
	"projectline/internal/server"
	"projectline/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "pl",
	Short: "Projectline CLI",
	Long: `Projectline tracks users, projects and tasks.
- Workspace: the .projectline directory holding the database.
- Users: accounts with a role (PMO, PROJECT_MANAGER, DEVELOPER, TESTER, STAKEHOLDER); deactivation keeps history, delete removes.
- Projects: owned by a managing user, with a team member set.
- Tasks: belong to a project, optionally assigned and nested under a parent task.
- Events: every create and update is published to the configured transport (redis streams, log or none).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PROJECTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(serveCmd())
}

// appServices bundles the wired service layer for one command invocation.
type appServices struct {
	Conn     *sql.DB
	Cfg      *config.Config
	Users    *service.UserService
	Projects *service.ProjectService
	Tasks    *service.TaskService
	closer   func() error
}

func loadConfig(workspace string) (*config.Config, error) {
	path := filepath.Join(workspace, ".projectline", "projectline.yml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func buildTransport(cfg *config.Config) (events.Transport, func() error) {
	switch cfg.Events.Transport {
	case "redis":
		t := events.NewStreamTransport(cfg.Events.RedisAddr, cfg.Events.StreamMaxLen)
		return t, t.Close
	case "none":
		return nil, nil
	default:
		return events.LogTransport{}, nil
	}
}

func withServices(ctx context.Context, fn func(context.Context, appServices) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := loadConfig(workspace)
	if err != nil {
		return err
	}
	transport, closer := buildTransport(cfg)
	if closer != nil {
		defer closer()
	}
	pub := events.Publisher{Transport: transport}
	r := repo.Repo{DB: conn}
	app := appServices{
		Conn:     conn,
		Cfg:      cfg,
		Users:    service.NewUserService(r),
		Projects: service.NewProjectService(conn, cfg, pub),
		Tasks:    service.NewTaskService(r, pub),
	}
	return fn(ctx, app)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// --- user commands ---

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}
	cmd.AddCommand(userCreateCmd())
	cmd.AddCommand(userListCmd())
	cmd.AddCommand(userGetCmd())
	cmd.AddCommand(userUpdateCmd())
	cmd.AddCommand(userDeactivateCmd())
	cmd.AddCommand(userDeleteCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var req service.CreateUserRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				u, err := app.Users.CreateUser(ctx, req)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "unique username")
	cmd.Flags().StringVar(&req.Email, "email", "", "unique email")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.Role, "role", "DEVELOPER", "role (PMO, PROJECT_MANAGER, DEVELOPER, TESTER, STAKEHOLDER)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				users, err := app.Users.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Username", "Email", "Role", "Active"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Username, u.Email, u.Role, u.Active})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func userGetCmd() *cobra.Command {
	var byUsername bool
	cmd := &cobra.Command{
		Use:   "get <id|username>",
		Short: "Get a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				if byUsername {
					u, err := app.Users.GetUserByUsername(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSONOrTable(u)
				}
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				u, err := app.Users.GetUserByID(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().BoolVar(&byUsername, "by-username", false, "look up by username instead of id")
	return cmd
}

func userUpdateCmd() *cobra.Command {
	var req service.CreateUserRequest
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				current, err := app.Users.GetUserByID(ctx, id)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("username") {
					req.Username = current.Username
				}
				if !cmd.Flags().Changed("email") {
					req.Email = current.Email
				}
				if !cmd.Flags().Changed("first-name") {
					req.FirstName = current.FirstName
				}
				if !cmd.Flags().Changed("last-name") {
					req.LastName = current.LastName
				}
				if !cmd.Flags().Changed("role") {
					req.Role = string(current.Role)
				}
				u, err := app.Users.UpdateUser(ctx, id, req)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "username")
	cmd.Flags().StringVar(&req.Email, "email", "", "email")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.Role, "role", "", "role")
	return cmd
}

func userDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a user, keeping history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				if err := app.Users.DeactivateUser(ctx, id); err != nil {
					return err
				}
				u, err := app.Users.GetUserByID(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
}

func userDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				return app.Users.DeleteUser(ctx, id)
			})
		},
	}
}

// --- project commands ---

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Manage projects"}
	cmd.AddCommand(projectCreateCmd())
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectGetCmd())
	cmd.AddCommand(projectUpdateCmd())
	cmd.AddCommand(projectStatusCmd())
	cmd.AddCommand(projectDeleteCmd())
	cmd.AddCommand(projectTeamCmd())
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var req service.CreateProjectRequest
	var targetEnd string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("target-end-date") {
				req.TargetEndDate = &targetEnd
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				p, err := app.Projects.CreateProject(ctx, req)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "project name")
	cmd.Flags().StringVar(&req.Description, "description", "", "description")
	cmd.Flags().StringVar(&req.StartDate, "start-date", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&targetEnd, "target-end-date", "", "target end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Status, "status", "PLANNED", "project status")
	cmd.Flags().IntVar(&req.EstimatedEffortHours, "estimated-effort", 0, "estimated effort in hours")
	cmd.Flags().Int64Var(&req.ProjectManagerID, "manager", 0, "managing user id")
	cmd.Flags().Int64SliceVar(&req.TeamMemberIDs, "member", nil, "team member user id (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start-date")
	_ = cmd.MarkFlagRequired("manager")
	return cmd
}

func projectListCmd() *cobra.Command {
	var status string
	var managerID, memberID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				var items []service.ProjectDTO
				var err error
				switch {
				case status != "":
					items, err = app.Projects.ListProjectsByStatus(ctx, status)
				case managerID != 0:
					items, err = app.Projects.ListProjectsByManager(ctx, managerID)
				case memberID != 0:
					items, err = app.Projects.ListProjectsByTeamMember(ctx, memberID)
				default:
					items, err = app.Projects.ListProjects(ctx)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Manager", "Team", "Start"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status, p.ProjectManager.Username, len(p.TeamMembers), p.StartDate})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().Int64Var(&managerID, "manager", 0, "filter by managing user id")
	cmd.Flags().Int64Var(&memberID, "member", 0, "filter by team member user id")
	return cmd
}

func projectGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				p, err := app.Projects.GetProjectByID(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var req service.CreateProjectRequest
	var targetEnd string
	var members []int64
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a project",
		Long:  "Flags not given keep their current value. --member replaces the whole team; --clear-team empties it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			clearTeam, _ := cmd.Flags().GetBool("clear-team")
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				current, err := app.Projects.GetProjectByID(ctx, id)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("name") {
					req.Name = current.Name
				}
				if !cmd.Flags().Changed("description") {
					req.Description = current.Description
				}
				if !cmd.Flags().Changed("start-date") {
					req.StartDate = current.StartDate
				}
				if cmd.Flags().Changed("target-end-date") {
					req.TargetEndDate = &targetEnd
				} else {
					req.TargetEndDate = current.TargetEndDate
				}
				if !cmd.Flags().Changed("status") {
					req.Status = current.Status
				}
				if !cmd.Flags().Changed("estimated-effort") {
					req.EstimatedEffortHours = current.EstimatedEffortHours
				}
				if !cmd.Flags().Changed("manager") {
					req.ProjectManagerID = current.ProjectManager.ID
				}
				switch {
				case clearTeam:
					req.TeamMemberIDs = []int64{}
				case cmd.Flags().Changed("member"):
					req.TeamMemberIDs = members
				default:
					req.TeamMemberIDs = nil
				}
				p, err := app.Projects.UpdateProject(ctx, id, req)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "project name")
	cmd.Flags().StringVar(&req.Description, "description", "", "description")
	cmd.Flags().StringVar(&req.StartDate, "start-date", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&targetEnd, "target-end-date", "", "target end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Status, "status", "", "project status")
	cmd.Flags().IntVar(&req.EstimatedEffortHours, "estimated-effort", 0, "estimated effort in hours")
	cmd.Flags().Int64Var(&req.ProjectManagerID, "manager", 0, "managing user id")
	cmd.Flags().Int64SliceVar(&members, "member", nil, "replacement team member id (repeatable)")
	cmd.Flags().Bool("clear-team", false, "remove all team members")
	return cmd
}

func projectStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Update project status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				p, err := app.Projects.UpdateProjectStatus(ctx, id, args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project without tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				return app.Projects.DeleteProject(ctx, id)
			})
		},
	}
}

func projectTeamCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "team", Short: "Manage project team membership"}
	add := &cobra.Command{
		Use:   "add <project-id> <user-id>",
		Short: "Add a team member",
		Args:  cobra.ExactArgs(2),
		RunE:  teamMutation(func(app appServices) teamOp { return app.Projects.AddTeamMember }),
	}
	remove := &cobra.Command{
		Use:   "remove <project-id> <user-id>",
		Short: "Remove a team member",
		Args:  cobra.ExactArgs(2),
		RunE:  teamMutation(func(app appServices) teamOp { return app.Projects.RemoveTeamMember }),
	}
	cmd.AddCommand(add)
	cmd.AddCommand(remove)
	return cmd
}

type teamOp func(ctx context.Context, projectID, userID int64) (service.ProjectDTO, error)

func teamMutation(pick func(appServices) teamOp) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		userID, err := parseID(args[1])
		if err != nil {
			return err
		}
		return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
			p, err := pick(app)(ctx, projectID, userID)
			if err != nil {
				return err
			}
			return printJSONOrTable(p)
		})
	}
}

// --- task commands ---

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskGetCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(taskAssignCmd())
	cmd.AddCommand(taskSubtasksCmd())
	cmd.AddCommand(taskDeleteCmd())
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var req service.CreateTaskRequest
	var dueDate string
	var estimated int
	var assignee, parent int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("due-date") {
				req.DueDate = &dueDate
			}
			if cmd.Flags().Changed("estimated-hours") {
				req.EstimatedHours = &estimated
			}
			if cmd.Flags().Changed("assignee") {
				req.AssigneeID = &assignee
			}
			if cmd.Flags().Changed("parent") {
				req.ParentTaskID = &parent
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				t, err := app.Tasks.CreateTask(ctx, req)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "task title")
	cmd.Flags().StringVar(&req.Description, "description", "", "description")
	cmd.Flags().StringVar(&req.Status, "status", "TODO", "task status")
	cmd.Flags().StringVar(&req.Priority, "priority", "MEDIUM", "priority (LOW, MEDIUM, HIGH, CRITICAL)")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&estimated, "estimated-hours", 0, "estimated hours")
	cmd.Flags().Int64Var(&req.ProjectID, "project", 0, "project id")
	cmd.Flags().Int64Var(&assignee, "assignee", 0, "assignee user id")
	cmd.Flags().Int64Var(&parent, "parent", 0, "parent task id")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func taskListCmd() *cobra.Command {
	var projectID, assigneeID int64
	var status, startDate, endDate string
	var overdue bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				items, err := listTasks(ctx, app.Tasks, taskListFilters{
					ProjectID:  projectID,
					AssigneeID: assigneeID,
					Status:     status,
					StartDate:  startDate,
					EndDate:    endDate,
					Overdue:    overdue,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Project", "Assignee", "Due"})
				for _, t := range items {
					assignee := ""
					if t.Assignee != nil {
						assignee = t.Assignee.Username
					}
					due := ""
					if t.DueDate != nil {
						due = *t.DueDate
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, t.ProjectID, assignee, due})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "filter by project id")
	cmd.Flags().Int64Var(&assigneeID, "assignee", 0, "filter by assignee user id")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&startDate, "start-date", "", "due date window start (with --project)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "due date window end (with --project)")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only tasks strictly past due")
	return cmd
}

type taskListFilters struct {
	ProjectID  int64
	AssigneeID int64
	Status     string
	StartDate  string
	EndDate    string
	Overdue    bool
}

func listTasks(ctx context.Context, tasks *service.TaskService, f taskListFilters) ([]service.TaskDTO, error) {
	switch {
	case f.Overdue:
		return tasks.ListOverdueTasks(ctx)
	case f.ProjectID != 0 && f.StartDate != "" && f.EndDate != "":
		return tasks.ListTasksByProjectAndDateRange(ctx, f.ProjectID, f.StartDate, f.EndDate)
	case f.ProjectID != 0 && f.Status != "":
		status, err := domain.ParseTaskStatus(f.Status)
		if err != nil {
			return nil, err
		}
		return tasks.ListTasksByProjectAndStatus(ctx, f.ProjectID, status)
	case f.ProjectID != 0:
		return tasks.ListTasksByProject(ctx, f.ProjectID)
	case f.AssigneeID != 0 && f.Status != "":
		status, err := domain.ParseTaskStatus(f.Status)
		if err != nil {
			return nil, err
		}
		return tasks.ListTasksByAssigneeAndStatus(ctx, f.AssigneeID, status)
	case f.AssigneeID != 0:
		return tasks.ListTasksByAssignee(ctx, f.AssigneeID)
	default:
		return tasks.ListTasks(ctx)
	}
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				t, err := app.Tasks.GetTaskByID(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var req service.CreateTaskRequest
	var dueDate string
	var estimated int
	var assignee, parent int64
	var clearAssignee, clearParent bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task",
		Long:  "Flags not given keep their current value. --clear-assignee unassigns; --clear-parent detaches from the hierarchy.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				current, err := app.Tasks.GetTaskByID(ctx, id)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("title") {
					req.Title = current.Title
				}
				if !cmd.Flags().Changed("description") {
					req.Description = current.Description
				}
				if !cmd.Flags().Changed("status") {
					req.Status = string(current.Status)
				}
				if !cmd.Flags().Changed("priority") {
					req.Priority = string(current.Priority)
				}
				if cmd.Flags().Changed("due-date") {
					req.DueDate = &dueDate
				} else {
					req.DueDate = current.DueDate
				}
				if cmd.Flags().Changed("estimated-hours") {
					req.EstimatedHours = &estimated
				} else {
					req.EstimatedHours = current.EstimatedHours
				}
				if !cmd.Flags().Changed("project") {
					req.ProjectID = current.ProjectID
				}
				switch {
				case clearAssignee:
					req.AssigneeID = nil
				case cmd.Flags().Changed("assignee"):
					req.AssigneeID = &assignee
				case current.Assignee != nil:
					req.AssigneeID = &current.Assignee.ID
				}
				switch {
				case clearParent:
					req.ParentTaskID = nil
				case cmd.Flags().Changed("parent"):
					req.ParentTaskID = &parent
				default:
					req.ParentTaskID = current.ParentTaskID
				}
				t, err := app.Tasks.UpdateTask(ctx, id, req)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "task title")
	cmd.Flags().StringVar(&req.Description, "description", "", "description")
	cmd.Flags().StringVar(&req.Status, "status", "", "task status")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "priority")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&estimated, "estimated-hours", 0, "estimated hours")
	cmd.Flags().Int64Var(&req.ProjectID, "project", 0, "project id")
	cmd.Flags().Int64Var(&assignee, "assignee", 0, "assignee user id")
	cmd.Flags().Int64Var(&parent, "parent", 0, "parent task id")
	cmd.Flags().BoolVar(&clearAssignee, "clear-assignee", false, "remove the assignee")
	cmd.Flags().BoolVar(&clearParent, "clear-parent", false, "detach from the parent task")
	return cmd
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Update task status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				t, err := app.Tasks.UpdateTaskStatus(ctx, id, domain.TaskStatus(args[1]))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <task-id> <user-id>",
		Short: "Assign a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			userID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				t, err := app.Tasks.AssignTask(ctx, taskID, userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskSubtasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subtasks <id>",
		Short: "List direct subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				items, err := app.Tasks.ListSubtasks(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task without subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				return app.Tasks.DeleteTask(ctx, id)
			})
		},
	}
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, app appServices) error {
				authCfg := server.AuthConfig{JWTSecret: os.Getenv("PROJECTLINE_JWT_SECRET")}
				handler, err := server.New(server.Config{
					Users:    app.Users,
					Projects: app.Projects,
					Tasks:    app.Tasks,
					BasePath: basePath,
					Auth:     authCfg,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				if authCfg.JWTSecret == "" {
					fmt.Println("warning: PROJECTLINE_JWT_SECRET not set, serving without authentication")
				}
				fmt.Printf("Serving Projectline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// --- output helpers ---

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
