package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitedeck/internal/config"
	"sitedeck/internal/dashboard"
	"sitedeck/internal/domain"
	"sitedeck/internal/events"
	"sitedeck/internal/repo"
	"sitedeck/internal/worker"
)

// ErrInvalidQueryKind rejects ad-hoc statements that are not a single
// SELECT. It is a caller mistake, never a server fault.
var ErrInvalidQueryKind = errors.New("only a single SELECT statement is allowed")

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Worker *worker.Client
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	e := Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
	if cfg != nil && cfg.Worker.UpstreamURL != "" {
		e.Worker = worker.New(cfg.Worker.UpstreamURL)
		if cfg.Worker.TimeoutSeconds > 0 {
			e.Worker.Timeout = time.Duration(cfg.Worker.TimeoutSeconds) * time.Second
		}
	}
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Dataset loads every entity collection in one pass.
func (e Engine) Dataset(ctx context.Context) (dashboard.Dataset, error) {
	var d dashboard.Dataset
	var err error
	if d.Projects, err = e.Repo.ListProjects(ctx); err != nil {
		return d, fmt.Errorf("load projects: %w", err)
	}
	if d.Tasks, err = e.Repo.ListTasks(ctx, repo.TaskFilters{}); err != nil {
		return d, fmt.Errorf("load tasks: %w", err)
	}
	if d.Equipment, err = e.Repo.ListEquipment(ctx); err != nil {
		return d, fmt.Errorf("load equipment: %w", err)
	}
	if d.Materials, err = e.Repo.ListMaterials(ctx, 0); err != nil {
		return d, fmt.Errorf("load materials: %w", err)
	}
	if d.SafetyReports, err = e.Repo.ListSafetyReports(ctx, 0); err != nil {
		return d, fmt.Errorf("load safety reports: %w", err)
	}
	if d.Users, err = e.Repo.ListUsers(ctx); err != nil {
		return d, fmt.Errorf("load users: %w", err)
	}
	if d.MaintenanceLogs, err = e.Repo.ListMaintenanceLogs(ctx); err != nil {
		return d, fmt.Errorf("load maintenance logs: %w", err)
	}
	return d, nil
}

// RoleView returns the role-scoped slice of the dataset.
func (e Engine) RoleView(ctx context.Context, role string) (dashboard.RoleView, error) {
	d, err := e.Dataset(ctx)
	if err != nil {
		return dashboard.RoleView{}, err
	}
	return dashboard.FilterForRole(role, d), nil
}

// Stats aggregates the dataset; period scopes the maintenance window.
func (e Engine) Stats(ctx context.Context, period string) (dashboard.Stats, error) {
	d, err := e.Dataset(ctx)
	if err != nil {
		return dashboard.Stats{}, err
	}
	s := dashboard.ComputeStats(d, e.now())
	if period != "" {
		s.MaintenanceCost = dashboard.MaintenanceCost(d.MaintenanceLogs, period, e.now())
	}
	return s, nil
}

// GetLayout returns the stored layout for (userID, role); on first
// access it persists the role default and returns that.
func (e Engine) GetLayout(ctx context.Context, userID, role string) (domain.DashboardLayout, error) {
	l, err := e.Repo.GetLayout(ctx, userID, role)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.DashboardLayout{}, err
	}
	l = domain.DashboardLayout{
		UserID:    userID,
		Role:      role,
		Tiles:     dashboard.DefaultTiles(role),
		UpdatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.UpsertLayout(ctx, l); err != nil {
		return domain.DashboardLayout{}, fmt.Errorf("persist default layout: %w", err)
	}
	return l, nil
}

// SaveLayout stores the tiles exactly as given. Last write wins.
func (e Engine) SaveLayout(ctx context.Context, userID, role string, tiles []domain.Tile) (domain.DashboardLayout, error) {
	l := domain.DashboardLayout{
		UserID:    userID,
		Role:      role,
		Tiles:     tiles,
		UpdatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.UpsertLayout(ctx, l); err != nil {
		return domain.DashboardLayout{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DashboardLayout{}, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "layout.saved", "layout", userID+"/"+role, userID, events.EventPayload{"tiles": len(tiles)}); err != nil {
		return domain.DashboardLayout{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DashboardLayout{}, err
	}
	return l, nil
}

// RunQuery executes an ad-hoc read-only query. Anything that is not a
// single SELECT statement fails with ErrInvalidQueryKind.
func (e Engine) RunQuery(ctx context.Context, query string) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(query)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if trimmed == "" || !strings.HasPrefix(strings.ToLower(trimmed), "select") {
		return nil, ErrInvalidQueryKind
	}
	if strings.Contains(trimmed, ";") {
		return nil, ErrInvalidQueryKind
	}
	return e.Repo.RunSelect(ctx, trimmed)
}

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ProjectID   int64
	Name        string
	Description string
	Status      string
	Priority    string
	AssignedTo  *int64
	DueDate     string
	ActorID     string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Status == "" {
		opts.Status = domain.TaskPending
	}
	if opts.Priority == "" {
		opts.Priority = "Medium"
	}
	t := domain.Task{
		ProjectID:   opts.ProjectID,
		Name:        opts.Name,
		Description: opts.Description,
		Status:      opts.Status,
		Priority:    opts.Priority,
		AssignedTo:  opts.AssignedTo,
		DueDate:     opts.DueDate,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	id, err := e.Repo.InsertTask(ctx, tx, t)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	t.ID = id
	if err := e.Events.Append(ctx, tx, "task.created", "task", fmt.Sprint(id), opts.ActorID, events.EventPayload{"name": t.Name, "status": t.Status}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskUpdateOptions carries the fields to change; nil means untouched.
type TaskUpdateOptions struct {
	Name        *string
	Description *string
	Status      *string
	Priority    *string
	AssignedTo  *int64
	DueDate     *string
	ActorID     string
}

func (e Engine) UpdateTask(ctx context.Context, id int64, opts TaskUpdateOptions) (domain.Task, error) {
	fields := map[string]any{}
	if opts.Name != nil {
		fields["name"] = *opts.Name
	}
	if opts.Description != nil {
		fields["description"] = *opts.Description
	}
	if opts.Status != nil {
		fields["status"] = *opts.Status
	}
	if opts.Priority != nil {
		fields["priority"] = *opts.Priority
	}
	if opts.AssignedTo != nil {
		fields["assigned_to"] = *opts.AssignedTo
	}
	if opts.DueDate != nil {
		fields["due_date"] = *opts.DueDate
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, id, fields); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.updated", "task", fmt.Sprint(id), opts.ActorID, events.EventPayload{"fields": len(fields)}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, id)
}

// WorkerMessage forwards one chat exchange to the assistant upstream,
// persists the exchange, and falls back to a local chart suggestion
// when the upstream reply carries none.
func (e Engine) WorkerMessage(ctx context.Context, userID, role, message string, extra map[string]any) (worker.MessageResponse, error) {
	if !e.Worker.Configured() {
		return worker.MessageResponse{}, worker.ErrUnavailable
	}
	req := worker.MessageRequest{
		UserID:  userID,
		Role:    role,
		Message: message,
		Context: extra,
	}
	resp, err := e.Worker.SendMessage(ctx, req)
	if err != nil {
		return worker.MessageResponse{}, err
	}
	if resp.Visualization == nil {
		rec, alts := dashboard.RecommendChart(message)
		resp.Visualization = &worker.Visualization{Recommended: rec, Alternatives: alts}
	}
	m := domain.ChatMessage{
		ID:          uuid.NewString(),
		UserID:      userID,
		Role:        role,
		UserMessage: message,
		AIResponse:  resp.Message,
		TS:          e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertChatMessage(ctx, m); err != nil {
		return worker.MessageResponse{}, fmt.Errorf("persist chat message: %w", err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return worker.MessageResponse{}, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "chat.message", "chat", m.ID, userID, events.EventPayload{"role": role}); err != nil {
		return worker.MessageResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return worker.MessageResponse{}, err
	}
	return resp, nil
}

// ChatHistory returns the recent exchanges for (userID, role), oldest
// first, capped at the configured history limit.
func (e Engine) ChatHistory(ctx context.Context, userID, role string) ([]domain.ChatMessage, error) {
	limit := 10
	if e.Config != nil && e.Config.Worker.HistoryLimit > 0 {
		limit = e.Config.Worker.HistoryLimit
	}
	return e.Repo.ListChatHistory(ctx, userID, role, limit)
}
