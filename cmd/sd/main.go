package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"sitedeck/internal/config"
	"sitedeck/internal/dashboard"
	"sitedeck/internal/db"
	"sitedeck/internal/domain"
	"sitedeck/internal/engine"
	"sitedeck/internal/migrate"
	"sitedeck/internal/repo"
	"sitedeck/internal/seed"
	"sitedeck/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sd",
	Short: "Sitedeck CLI",
	Long: `Sitedeck is a role-scoped dashboard backend for construction companies.
It keeps projects, tasks, materials, equipment, maintenance history and
safety reports in a workspace-local SQLite database, scopes what each
role may see, aggregates the numbers the dashboard tiles need, and
stores per-user tile layouts.`,
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
	viper.SetEnvPrefix("SITEDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user-id", "local-user", "acting user identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(roleCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(layoutCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	})
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default sitedeck.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.DefaultTemplate()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	return cfgCmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Println("migrated", db.Path(workspace))
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var fromDir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the workspace with demo data or JSON fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if fromDir != "" {
					if err := seed.ImportDir(ctx, e.Repo, fromDir); err != nil {
						return err
					}
					fmt.Println("imported fixtures from", fromDir)
					return nil
				}
				if err := seed.Demo(ctx, e.Repo); err != nil {
					return err
				}
				fmt.Println("seeded demo data")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&fromDir, "fixtures", "", "directory of JSON fixture files")
	return cmd
}

func roleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role <role>",
		Short: "Show the dataset a role may see",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.RoleView(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(view)
			})
		},
	}
	return cmd
}

func statsCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if period != "" && period != "month" && period != "quarter" && period != "year" {
				return fmt.Errorf("invalid period %q (month, quarter or year)", period)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				stats, err := e.Stats(ctx, period)
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "maintenance cost window (month, quarter, year)")
	return cmd
}

func layoutCmd() *cobra.Command {
	layout := &cobra.Command{Use: "layout", Short: "Manage dashboard layouts"}
	layout.AddCommand(layoutShowCmd())
	layout.AddCommand(layoutSaveCmd())
	layout.AddCommand(layoutDefaultsCmd())
	return layout
}

func layoutShowCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the layout for a user and role, creating the default on first access",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				l, err := e.GetLayout(ctx, viper.GetString("user-id"), role)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(l)
				}
				printTiles(l.Tiles)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "dashboard role")
	return cmd
}

func layoutSaveCmd() *cobra.Command {
	var role, file string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a layout from a JSON tile file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var tiles []domain.Tile
			if err := json.Unmarshal(data, &tiles); err != nil {
				return fmt.Errorf("parse tiles: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				l, err := e.SaveLayout(ctx, viper.GetString("user-id"), role, tiles)
				if err != nil {
					return err
				}
				return printJSONOrTiles(l.Tiles)
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "dashboard role")
	cmd.Flags().StringVar(&file, "file", "", "JSON file with a tile array")
	return cmd
}

func layoutDefaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults <role>",
		Short: "Print the built-in default layout for a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSONOrTiles(dashboard.DefaultTiles(args[0]))
		},
	}
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a single read-only SELECT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rows, err := e.RunQuery(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(rows)
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskUpdateCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var projectID, assignedTo int64
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{
					ProjectID:  projectID,
					Status:     status,
					AssignedTo: assignedTo,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Project", "Name", "Status", "Priority", "Due"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.ProjectID, t.Name, t.Status, t.Priority, t.DueDate})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "filter by project id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().Int64Var(&assignedTo, "assigned-to", 0, "filter by assignee user id")
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var projectID, assignedTo int64
	var name, description, status, priority, dueDate string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			if projectID == 0 {
				return fmt.Errorf("--project required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.TaskCreateOptions{
					ProjectID:   projectID,
					Name:        name,
					Description: description,
					Status:      status,
					Priority:    priority,
					DueDate:     dueDate,
					ActorID:     viper.GetString("user-id"),
				}
				if assignedTo != 0 {
					opts.AssignedTo = &assignedTo
				}
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	cmd.Flags().StringVar(&name, "name", "", "task name")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&status, "status", "", "initial status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (Low, Medium, High)")
	cmd.Flags().Int64Var(&assignedTo, "assigned-to", 0, "assignee user id")
	cmd.Flags().StringVar(&dueDate, "due", "", "due date (YYYY-MM-DD)")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var id, assignedTo int64
	var name, description, status, priority, dueDate string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.TaskUpdateOptions{
					Name:        optionalString(name),
					Description: optionalString(description),
					Status:      optionalString(status),
					Priority:    optionalString(priority),
					DueDate:     optionalString(dueDate),
					ActorID:     viper.GetString("user-id"),
				}
				if assignedTo != 0 {
					opts.AssignedTo = &assignedTo
				}
				t, err := e.UpdateTask(ctx, id, opts)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "task id")
	cmd.Flags().StringVar(&name, "name", "", "task name")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().Int64Var(&assignedTo, "assigned-to", 0, "assignee user id")
	cmd.Flags().StringVar(&dueDate, "due", "", "due date (YYYY-MM-DD)")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			e := engine.New(conn, cfg)
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: os.Getenv("SITEDECK_JWT_SECRET")},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Sitedeck API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSONOrTiles(tiles []domain.Tile) error {
	if viper.GetBool("json") {
		return printJSON(tiles)
	}
	printTiles(tiles)
	return nil
}

func printTiles(tiles []domain.Tile) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Size", "Priority"})
	for _, t := range tiles {
		tw.AppendRow(table.Row{t.ID, t.Title, t.Size, t.Priority})
	}
	tw.Render()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
