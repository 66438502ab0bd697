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
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"sitedeck/internal/dashboard"
	"sitedeck/internal/domain"
	"sitedeck/internal/engine"
	"sitedeck/internal/repo"
	"sitedeck/internal/worker"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"task not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Sitedeck API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
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
	hcfg := huma.DefaultConfig("Sitedeck API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerRoles(group, cfg.Engine)
	registerStats(group, cfg.Engine)
	registerLayout(group, cfg.Engine)
	registerQuery(group, cfg.Engine)
	registerEntities(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerWorker(group, cfg.Engine)
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
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, worker.ErrUnavailable) {
		return newAPIError(http.StatusServiceUnavailable, "assistant_unavailable", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusServiceUnavailable:
		return "assistant_unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
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
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Sitedeck API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerRoles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-roles",
		Method:      http.MethodGet,
		Path:        "/roles",
		Summary:     "List known roles",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Roles []string `json:"roles"`
		} `json:"body"`
	}, error) {
		out := &struct {
			Body struct {
				Roles []string `json:"roles"`
			} `json:"body"`
		}{}
		if e.Config != nil {
			out.Body.Roles = e.Config.Roles.Canonical
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "role-view",
		Method:      http.MethodGet,
		Path:        "/roles/{role}",
		Summary:     "Role-scoped dataset",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Role string `path:"role"`
	}) (*struct {
		Body dashboard.RoleView `json:"body"`
	}, error) {
		view, err := e.RoleView(ctx, input.Role)
		if err != nil {
			return nil, handleError(err)
		}
		// empty slices serialize as [] so mandatory sections never
		// come back null
		if view.Projects == nil {
			view.Projects = []domain.Project{}
		}
		if view.Tasks == nil {
			view.Tasks = []domain.Task{}
		}
		if view.Equipment == nil {
			view.Equipment = []domain.Equipment{}
		}
		return &struct {
			Body dashboard.RoleView `json:"body"`
		}{Body: view}, nil
	})
}

func registerStats(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Aggregate statistics",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Period string `query:"period" enum:"month,quarter,year" required:"false"`
	}) (*struct {
		Body dashboard.Stats `json:"body"`
	}, error) {
		stats, err := e.Stats(ctx, input.Period)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body dashboard.Stats `json:"body"`
		}{Body: stats}, nil
	})
}

func registerLayout(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-layout",
		Method:      http.MethodGet,
		Path:        "/dashboard/layout",
		Summary:     "Get dashboard layout",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		UserID string `query:"user_id"`
		Role   string `query:"role"`
	}) (*struct {
		Body LayoutBody `json:"body"`
	}, error) {
		userID, role := input.UserID, input.Role
		if p, ok := principalFromContext(ctx); ok {
			if userID == "" {
				userID = p.UserID
			}
			if role == "" {
				role = p.Role
			}
		}
		if userID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		layout, err := e.GetLayout(ctx, userID, role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LayoutBody `json:"body"`
		}{Body: LayoutBody{Tiles: tileDTOs(layout.Tiles)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-layout",
		Method:      http.MethodPost,
		Path:        "/dashboard/layout",
		Summary:     "Save dashboard layout",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body SaveLayoutRequest `json:"body"`
	}) (*struct {
		Body LayoutBody `json:"body"`
	}, error) {
		saved, err := e.SaveLayout(ctx, input.Body.UserID, input.Body.Role, tilesFromDTOs(input.Body.Layout.Tiles))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LayoutBody `json:"body"`
		}{Body: LayoutBody{Tiles: tileDTOs(saved.Tiles)}}, nil
	})
}

func registerQuery(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "run-query",
		Method:      http.MethodPost,
		Path:        "/query",
		Summary:     "Run a read-only query",
		Description: "Executes a single SELECT statement. Anything else is rejected with success=false; the endpoint itself always answers 200.",
	}, func(ctx context.Context, input *struct {
		Body QueryRequest `json:"body"`
	}) (*struct {
		Body QueryResponse `json:"body"`
	}, error) {
		out := &struct {
			Body QueryResponse `json:"body"`
		}{}
		rows, err := e.RunQuery(ctx, input.Body.SQL)
		if err != nil {
			out.Body = QueryResponse{Success: false, Error: err.Error()}
			return out, nil
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		out.Body = QueryResponse{Success: true, Results: rows}
		return out, nil
	})
}

func registerEntities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		items, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-equipment",
		Method:      http.MethodGet,
		Path:        "/equipment",
		Summary:     "List equipment",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Equipment `json:"body"`
	}, error) {
		items, err := e.Repo.ListEquipment(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Equipment `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-materials",
		Method:      http.MethodGet,
		Path:        "/materials",
		Summary:     "List materials",
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `query:"project_id" required:"false"`
	}) (*struct {
		Body []domain.Material `json:"body"`
	}, error) {
		items, err := e.Repo.ListMaterials(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Material `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-safety-reports",
		Method:      http.MethodGet,
		Path:        "/safety-reports",
		Summary:     "List safety reports",
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `query:"project_id" required:"false"`
	}) (*struct {
		Body []domain.SafetyReport `json:"body"`
	}, error) {
		items, err := e.Repo.ListSafetyReports(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.SafetyReport `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-maintenance-logs",
		Method:      http.MethodGet,
		Path:        "/maintenance-logs",
		Summary:     "List maintenance logs",
	}, func(ctx context.Context, input *struct {
		Period string `query:"period" enum:"month,quarter,year" required:"false"`
	}) (*struct {
		Body []domain.MaintenanceLog `json:"body"`
	}, error) {
		items, err := e.Repo.ListMaintenanceLogs(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if input.Period != "" {
			now := time.Now()
			if e.Now != nil {
				now = e.Now()
			}
			items = dashboard.FilterMaintenanceLogs(items, input.Period, now)
		}
		return &struct {
			Body []domain.MaintenanceLog `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		items, err := e.Repo.ListUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: items}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		ProjectID  int64  `query:"project_id" required:"false"`
		Status     string `query:"status" required:"false"`
		AssignedTo int64  `query:"assigned_to" required:"false"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		items, err := e.Repo.ListTasks(ctx, repo.TaskFilters{
			ProjectID:  input.ProjectID,
			Status:     input.Status,
			AssignedTo: input.AssignedTo,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		opts := engine.TaskCreateOptions{
			ProjectID:  input.Body.ProjectID,
			Name:       input.Body.Name,
			AssignedTo: input.Body.AssignedTo,
			DueDate:    input.Body.DueDate,
			ActorID:    actorID(ctx),
		}
		if input.Body.Description != nil {
			opts.Description = *input.Body.Description
		}
		if input.Body.Status != nil {
			opts.Status = *input.Body.Status
		}
		if input.Body.Priority != nil {
			opts.Priority = *input.Body.Priority
		}
		task, err := e.CreateTask(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		TaskID int64             `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		task, err := e.UpdateTask(ctx, input.TaskID, engine.TaskUpdateOptions{
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			AssignedTo:  input.Body.AssignedTo,
			DueDate:     input.Body.DueDate,
			ActorID:     actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})
}

func registerWorker(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "worker-roles",
		Method:      http.MethodGet,
		Path:        "/worker/roles",
		Summary:     "Roles the assistant understands",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			Roles []string `json:"roles"`
		} `json:"body"`
	}, error) {
		out := &struct {
			Body struct {
				Roles []string `json:"roles"`
			} `json:"body"`
		}{}
		if e.Config != nil {
			out.Body.Roles = e.Config.Roles.Canonical
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "worker-message",
		Method:      http.MethodPost,
		Path:        "/worker/message",
		Summary:     "Forward a message to the assistant",
		Errors:      []int{http.StatusBadRequest, http.StatusServiceUnavailable, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body WorkerMessageRequest `json:"body"`
	}) (*struct {
		Body worker.MessageResponse `json:"body"`
	}, error) {
		resp, err := e.WorkerMessage(ctx, input.Body.UserID, input.Body.Role, input.Body.Message, input.Body.Context)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body worker.MessageResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "worker-history",
		Method:      http.MethodGet,
		Path:        "/worker/history",
		Summary:     "Recent assistant exchanges",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		UserID string `query:"user_id"`
		Role   string `query:"role"`
	}) (*struct {
		Body []domain.ChatMessage `json:"body"`
	}, error) {
		if input.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		items, err := e.ChatHistory(ctx, input.UserID, input.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ChatMessage `json:"body"`
		}{Body: items}, nil
	})
}

func actorID(ctx context.Context) string {
	if p, ok := principalFromContext(ctx); ok {
		return p.UserID
	}
	return "anonymous"
}
