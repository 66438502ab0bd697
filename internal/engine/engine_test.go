package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"sitedeck/internal/config"
	"sitedeck/internal/db"
	"sitedeck/internal/domain"
	"sitedeck/internal/engine"
	"sitedeck/internal/migrate"
	"sitedeck/internal/repo"
	"sitedeck/internal/worker"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
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
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func seedBasics(t *testing.T, env testEnv) int64 {
	t.Helper()
	projectID, err := env.Engine.Repo.InsertProject(env.Ctx, domain.Project{
		Name: "Riverside Tower", Status: domain.ProjectInProgress,
		StartDate: "2026-01-05", EndDate: "2026-12-20", Budget: 500000,
	})
	if err != nil {
		t.Fatalf("insert project: %v", err)
	}
	if _, err := env.Engine.Repo.InsertMaterial(env.Ctx, domain.Material{
		ProjectID: projectID, Name: "Rebar", Quantity: 100, UnitPrice: 12.5,
		Status: domain.MaterialDelivered, DeliveryDate: "2026-02-01",
	}); err != nil {
		t.Fatalf("insert material: %v", err)
	}
	if _, err := env.Engine.Repo.InsertEquipment(env.Ctx, domain.Equipment{
		Name: "Crane A", Type: "crane", Status: domain.EquipmentOperational, DailyCost: 800,
	}); err != nil {
		t.Fatalf("insert equipment: %v", err)
	}
	return projectID
}

func TestGetLayoutSynthesizesDefault(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.Engine.GetLayout(env.Ctx, "u1", "ceo")
	if err != nil {
		t.Fatalf("get layout: %v", err)
	}
	second, err := env.Engine.GetLayout(env.Ctx, "u1", "ceo")
	if err != nil {
		t.Fatalf("get layout again: %v", err)
	}
	if !reflect.DeepEqual(first.Tiles, second.Tiles) {
		t.Fatal("repeated reads differ")
	}
	wantIDs := []string{"finances", "safety", "tasks", "projects", "mail"}
	for i, tile := range first.Tiles {
		if tile.ID != wantIDs[i] {
			t.Fatalf("tile %d = %s, want %s", i, tile.ID, wantIDs[i])
		}
	}
	// the default must have been persisted, not just computed
	if _, err := env.Engine.Repo.GetLayout(env.Ctx, "u1", "ceo"); err != nil {
		t.Fatalf("default layout not persisted: %v", err)
	}
}

func TestSaveLayoutRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	tiles := []domain.Tile{
		{ID: "projects", Title: "Project Overview", Size: "large", Priority: 3},
		{ID: "tasks", Title: "My Tasks", Size: "small", Priority: 1},
	}
	if _, err := env.Engine.SaveLayout(env.Ctx, "u2", "engineer", tiles); err != nil {
		t.Fatalf("save layout: %v", err)
	}
	got, err := env.Engine.GetLayout(env.Ctx, "u2", "engineer")
	if err != nil {
		t.Fatalf("get layout: %v", err)
	}
	// stored as given, no resort on the explicit-save path
	if !reflect.DeepEqual(got.Tiles, tiles) {
		t.Fatalf("round trip changed tiles: %+v", got.Tiles)
	}
}

func TestSaveLayoutLastWriteWins(t *testing.T) {
	env := newTestEnv(t)
	a := []domain.Tile{{ID: "tasks", Title: "My Tasks", Size: "large", Priority: 1}}
	b := []domain.Tile{{ID: "safety", Title: "Safety Reminders", Size: "medium", Priority: 2}}
	if _, err := env.Engine.SaveLayout(env.Ctx, "u3", "worker", a); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := env.Engine.SaveLayout(env.Ctx, "u3", "worker", b); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := env.Engine.GetLayout(env.Ctx, "u3", "worker")
	if err != nil {
		t.Fatalf("get layout: %v", err)
	}
	if !reflect.DeepEqual(got.Tiles, b) {
		t.Fatalf("got %+v, want the later write", got.Tiles)
	}
}

func TestRoleViewScoping(t *testing.T) {
	env := newTestEnv(t)
	seedBasics(t, env)

	base, err := env.Engine.RoleView(env.Ctx, "worker")
	if err != nil {
		t.Fatalf("role view: %v", err)
	}
	if len(base.Projects) != 1 || len(base.Equipment) != 1 {
		t.Fatalf("base view missing core sections: %+v", base)
	}
	if base.Materials != nil || base.FinancialSummary != nil {
		t.Fatal("worker sees restricted sections")
	}

	ceo, err := env.Engine.RoleView(env.Ctx, "ceo")
	if err != nil {
		t.Fatalf("ceo view: %v", err)
	}
	if ceo.FinancialSummary == nil || ceo.FinancialSummary.TotalRevenue != 500000 {
		t.Fatalf("ceo financials = %+v", ceo.FinancialSummary)
	}
}

func TestRunQueryGate(t *testing.T) {
	env := newTestEnv(t)
	seedBasics(t, env)

	rows, err := env.Engine.RunQuery(env.Ctx, "SELECT name, budget FROM projects")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Riverside Tower" {
		t.Fatalf("rows = %+v", rows)
	}

	for _, bad := range []string{
		"DROP TABLE projects",
		"DELETE FROM projects",
		"UPDATE projects SET budget = 0",
		"SELECT 1; DROP TABLE projects",
		"   ",
	} {
		if _, err := env.Engine.RunQuery(env.Ctx, bad); !errors.Is(err, engine.ErrInvalidQueryKind) {
			t.Fatalf("%q: err = %v, want ErrInvalidQueryKind", bad, err)
		}
	}

	// trailing semicolon on a single SELECT is fine
	if _, err := env.Engine.RunQuery(env.Ctx, "SELECT * FROM projects;"); err != nil {
		t.Fatalf("trailing semicolon: %v", err)
	}
}

func TestStatsPeriod(t *testing.T) {
	env := newTestEnv(t)
	seedBasics(t, env)
	eqID, err := env.Engine.Repo.InsertEquipment(env.Ctx, domain.Equipment{
		Name: "Excavator", Type: "excavator", Status: domain.EquipmentUnderMaintenance, DailyCost: 650,
	})
	if err != nil {
		t.Fatalf("insert equipment: %v", err)
	}
	now := env.Engine.Now()
	logs := []domain.MaintenanceLog{
		{EquipmentID: eqID, MaintenanceDate: now.AddDate(0, 0, -10).Format("2006-01-02"), MaintenanceType: "repair", Cost: 200},
		{EquipmentID: eqID, MaintenanceDate: now.AddDate(0, 0, -40).Format("2006-01-02"), MaintenanceType: "inspection", Cost: 1000},
	}
	for _, l := range logs {
		if _, err := env.Engine.Repo.InsertMaintenanceLog(env.Ctx, l); err != nil {
			t.Fatalf("insert log: %v", err)
		}
	}

	all, err := env.Engine.Stats(env.Ctx, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if all.MaintenanceCost != 1200 {
		t.Fatalf("all-time maintenance = %v, want 1200", all.MaintenanceCost)
	}
	if all.TotalMaterialCost != 1250 {
		t.Fatalf("material cost = %v, want 1250", all.TotalMaterialCost)
	}
	if all.EquipmentUsageRate != 50 {
		t.Fatalf("usage rate = %v, want 50", all.EquipmentUsageRate)
	}

	month, err := env.Engine.Stats(env.Ctx, "month")
	if err != nil {
		t.Fatalf("stats month: %v", err)
	}
	if month.MaintenanceCost != 200 {
		t.Fatalf("month maintenance = %v, want 200", month.MaintenanceCost)
	}
}

func TestCreateAndUpdateTask(t *testing.T) {
	env := newTestEnv(t)
	projectID := seedBasics(t, env)

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: projectID,
		Name:      "Pour foundation",
		DueDate:   "2026-09-15",
		ActorID:   "u1",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != domain.TaskPending || task.Priority != "Medium" {
		t.Fatalf("defaults not applied: %+v", task)
	}

	status := domain.TaskCompleted
	task, err = env.Engine.UpdateTask(env.Ctx, task.ID, engine.TaskUpdateOptions{Status: &status, ActorID: "u1"})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if task.Status != domain.TaskCompleted {
		t.Fatalf("status = %s", task.Status)
	}

	_, err = env.Engine.UpdateTask(env.Ctx, 9999, engine.TaskUpdateOptions{Status: &status, ActorID: "u1"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing task: err = %v, want ErrNotFound", err)
	}
}

func TestWorkerMessage(t *testing.T) {
	env := newTestEnv(t)

	// unconfigured upstream is a typed failure
	if _, err := env.Engine.WorkerMessage(env.Ctx, "u1", "ceo", "hello", nil); !errors.Is(err, worker.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(worker.MessageResponse{Message: "3 projects on track"})
	}))
	defer srv.Close()
	env.Engine.Worker = worker.New(srv.URL)

	resp, err := env.Engine.WorkerMessage(env.Ctx, "u1", "ceo", "compare project budgets", nil)
	if err != nil {
		t.Fatalf("worker message: %v", err)
	}
	if resp.Message != "3 projects on track" {
		t.Fatalf("message = %q", resp.Message)
	}
	// upstream sent no visualization, so the local matcher filled it
	if resp.Visualization == nil || resp.Visualization.Recommended != "bar" {
		t.Fatalf("visualization = %+v", resp.Visualization)
	}

	history, err := env.Engine.ChatHistory(env.Ctx, "u1", "ceo")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].UserMessage != "compare project budgets" {
		t.Fatalf("history = %+v", history)
	}
}
