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

	"sitedeck/internal/config"
	"sitedeck/internal/db"
	"sitedeck/internal/domain"
	"sitedeck/internal/engine"
	"sitedeck/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	e.Now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	handler, err := New(Config{Engine: e, BasePath: "/api"})
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
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
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

func seedServerData(t *testing.T, e engine.Engine) {
	t.Helper()
	ctx := context.Background()
	projectID, err := e.Repo.InsertProject(ctx, domain.Project{
		Name: "Riverside Tower", Status: domain.ProjectInProgress,
		StartDate: "2026-01-05", EndDate: "2026-12-20", Budget: 500000,
	})
	if err != nil {
		t.Fatalf("insert project: %v", err)
	}
	if _, err := e.CreateTask(ctx, engine.TaskCreateOptions{
		ProjectID: projectID, Name: "Pour foundation", Status: domain.TaskCompleted,
		DueDate: "2026-03-01", ActorID: "tester",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := e.Repo.InsertMaterial(ctx, domain.Material{
		ProjectID: projectID, Name: "Rebar", Quantity: 100, UnitPrice: 12.5,
		Status: domain.MaterialDelivered, DeliveryDate: "2026-02-01",
	}); err != nil {
		t.Fatalf("insert material: %v", err)
	}
	if _, err := e.Repo.InsertEquipment(ctx, domain.Equipment{
		Name: "Crane A", Type: "crane", Status: domain.EquipmentOperational, DailyCost: 800,
	}); err != nil {
		t.Fatalf("insert equipment: %v", err)
	}
	if _, err := e.Repo.InsertSafetyReport(ctx, domain.SafetyReport{
		ProjectID: projectID, ReportDate: "2026-08-10", InspectorName: "Kim",
		ComplianceStatus: domain.ComplianceCompliant,
	}); err != nil {
		t.Fatalf("insert safety report: %v", err)
	}
}

func TestRoleViewEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	seedServerData(t, srv.Engine)

	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/roles/worker", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%s", res.StatusCode, body)
	}
	var view map[string]json.RawMessage
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"projects", "tasks", "equipment"} {
		if _, ok := view[key]; !ok {
			t.Fatalf("base section %q missing: %s", key, body)
		}
	}
	for _, key := range []string{"materials", "safetyReports", "users", "maintenanceLogs", "financialSummary"} {
		if _, ok := view[key]; ok {
			t.Fatalf("worker view leaked %q: %s", key, body)
		}
	}

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/roles/ceo", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("ceo status = %d", res.StatusCode)
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("decode ceo: %v", err)
	}
	if _, ok := view["financialSummary"]; !ok {
		t.Fatalf("ceo view missing financialSummary: %s", body)
	}
}

func TestLayoutEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/dashboard/layout?user_id=u1&role=ceo", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%s", res.StatusCode, body)
	}
	var layout LayoutBody
	if err := json.Unmarshal(body, &layout); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(layout.Tiles) != 5 || layout.Tiles[0].ID != "finances" {
		t.Fatalf("ceo default layout = %+v", layout.Tiles)
	}

	custom := SaveLayoutRequest{
		UserID: "u1",
		Role:   "ceo",
		Layout: LayoutBody{Tiles: []TileDTO{
			{ID: "projects", Title: "Project Overview", Size: "large", Priority: 2},
			{ID: "finances", Title: "Financial Overview", Size: "small", Priority: 1},
		}},
	}
	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/dashboard/layout", custom, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d body=%s", res.StatusCode, body)
	}

	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/dashboard/layout?user_id=u1&role=ceo", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reload status = %d", res.StatusCode)
	}
	if err := json.Unmarshal(body, &layout); err != nil {
		t.Fatalf("decode reload: %v", err)
	}
	// stored as given: the save path imposes no resort
	if len(layout.Tiles) != 2 || layout.Tiles[0].ID != "projects" || layout.Tiles[1].ID != "finances" {
		t.Fatalf("round trip changed layout: %+v", layout.Tiles)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/dashboard/layout", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing user_id status = %d", res.StatusCode)
	}

	// header identity works in place of query params
	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/dashboard/layout", nil, map[string]string{
		"X-User-Id": "u2", "X-Role": "engineer",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("header identity status = %d body=%s", res.StatusCode, body)
	}
}

func TestQueryEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	seedServerData(t, srv.Engine)

	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/query", QueryRequest{SQL: "SELECT name FROM projects"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%s", res.StatusCode, body)
	}
	var qr QueryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !qr.Success || len(qr.Results) != 1 || qr.Results[0]["name"] != "Riverside Tower" {
		t.Fatalf("response = %+v", qr)
	}

	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/query", QueryRequest{SQL: "DROP TABLE projects"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("drop status = %d, rejections still answer 200", res.StatusCode)
	}
	if err := json.Unmarshal(body, &qr); err != nil {
		t.Fatalf("decode drop: %v", err)
	}
	if qr.Success || qr.Error == "" {
		t.Fatalf("drop response = %+v", qr)
	}

	// the table must have survived
	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/query", QueryRequest{SQL: "SELECT COUNT(*) AS n FROM projects"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("count status = %d", res.StatusCode)
	}
	if err := json.Unmarshal(body, &qr); err != nil {
		t.Fatalf("decode count: %v", err)
	}
	if !qr.Success {
		t.Fatalf("count response = %+v", qr)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	seedServerData(t, srv.Engine)

	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/stats", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%s", res.StatusCode, body)
	}
	var stats map[string]any
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := stats["task_completion_rate"]; got != 100.0 {
		t.Fatalf("task_completion_rate = %v", got)
	}
	if got := stats["total_material_cost"]; got != 1250.0 {
		t.Fatalf("total_material_cost = %v", got)
	}
	if got := stats["compliance_rate"]; got != 100.0 {
		t.Fatalf("compliance_rate = %v", got)
	}
}

func TestWorkerMessageUnconfigured(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/worker/message", WorkerMessageRequest{
		UserID: "u1", Role: "ceo", Message: "hello",
	}, nil)
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d body=%s", res.StatusCode, body)
	}
}

func TestTaskEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	seedServerData(t, srv.Engine)

	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/tasks", map[string]any{
		"project_id": 1,
		"name":       "Install windows",
		"due_date":   "2026-10-01",
	}, map[string]string{"X-User-Id": "u1"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", res.StatusCode, body)
	}
	var task domain.Task
	if err := json.Unmarshal(body, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.Status != domain.TaskPending {
		t.Fatalf("status = %s", task.Status)
	}

	res, body = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/api/tasks/"+itoa(task.ID), map[string]any{
		"status": domain.TaskInProgress,
	}, map[string]string{"X-User-Id": "u1"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d body=%s", res.StatusCode, body)
	}
	if err := json.Unmarshal(body, &task); err != nil {
		t.Fatalf("decode patched: %v", err)
	}
	if task.Status != domain.TaskInProgress {
		t.Fatalf("patched status = %s", task.Status)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/api/tasks/99999", map[string]any{
		"status": domain.TaskCompleted,
	}, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing task status = %d", res.StatusCode)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
