// Package seed fills a fresh workspace with data: either the built-in
// demo site or JSON fixture files exported from another system.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sitedeck/internal/domain"
	"sitedeck/internal/repo"
)

func ptr(v int64) *int64 { return &v }

// Demo inserts a small construction company: two projects with tasks,
// materials, equipment, maintenance history and safety reports.
func Demo(ctx context.Context, r repo.Repo) error {
	if _, err := r.InsertUser(ctx, domain.User{Name: "Dana Whitfield", Role: "ceo"}); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	pm, err := r.InsertUser(ctx, domain.User{Name: "Marcus Cole", Role: "project-manager"})
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if _, err := r.InsertUser(ctx, domain.User{Name: "Priya Anand", Role: "safety-officer"}); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	eng, err := r.InsertUser(ctx, domain.User{Name: "Tomas Ririnui", Role: "engineer"})
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	tower, err := r.InsertProject(ctx, domain.Project{
		Name: "Riverside Tower", Status: domain.ProjectInProgress,
		StartDate: "2026-01-05", EndDate: "2026-12-20", Budget: 500000, ManagerID: ptr(pm),
	})
	if err != nil {
		return fmt.Errorf("seed projects: %w", err)
	}
	bridge, err := r.InsertProject(ctx, domain.Project{
		Name: "Harbor Bridge Retrofit", Status: domain.ProjectPlanning,
		StartDate: "2026-06-01", EndDate: "2027-03-31", Budget: 250000, ManagerID: ptr(pm),
	})
	if err != nil {
		return fmt.Errorf("seed projects: %w", err)
	}

	tasks := []domain.Task{
		{ProjectID: tower, Name: "Pour foundation", Status: domain.TaskCompleted, Priority: "High", AssignedTo: ptr(eng), DueDate: "2026-03-01"},
		{ProjectID: tower, Name: "Erect steel frame", Status: domain.TaskInProgress, Priority: "High", AssignedTo: ptr(eng), DueDate: "2026-07-15"},
		{ProjectID: tower, Name: "Install windows", Status: domain.TaskPending, Priority: "Medium", DueDate: "2026-10-01"},
		{ProjectID: bridge, Name: "Structural survey", Status: domain.TaskPending, Priority: "High", DueDate: "2026-07-01"},
	}
	for _, t := range tasks {
		tx, err := r.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := r.InsertTask(ctx, tx, t); err != nil {
			tx.Rollback()
			return fmt.Errorf("seed tasks: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	materials := []domain.Material{
		{ProjectID: tower, Name: "Rebar", Quantity: 1200, UnitPrice: 12.5, Status: domain.MaterialDelivered, DeliveryDate: "2026-02-01"},
		{ProjectID: tower, Name: "Concrete mix", Quantity: 350, UnitPrice: 95, Status: domain.MaterialDelivered, DeliveryDate: "2026-02-10"},
		{ProjectID: bridge, Name: "Structural steel", Quantity: 80, UnitPrice: 640, Status: domain.MaterialOrdered, DeliveryDate: "2026-08-15"},
	}
	for _, m := range materials {
		if _, err := r.InsertMaterial(ctx, m); err != nil {
			return fmt.Errorf("seed materials: %w", err)
		}
	}

	crane, err := r.InsertEquipment(ctx, domain.Equipment{
		Name: "Tower Crane A", Type: "crane", Status: domain.EquipmentOperational,
		AssignedProject: ptr(tower), DailyCost: 800, LastMaintenance: "2026-07-20", NextMaintenance: "2026-10-20",
	})
	if err != nil {
		return fmt.Errorf("seed equipment: %w", err)
	}
	excavator, err := r.InsertEquipment(ctx, domain.Equipment{
		Name: "Excavator 320", Type: "excavator", Status: domain.EquipmentUnderMaintenance,
		DailyCost: 650, LastMaintenance: "2026-08-18",
	})
	if err != nil {
		return fmt.Errorf("seed equipment: %w", err)
	}

	logs := []domain.MaintenanceLog{
		{EquipmentID: crane, MaintenanceDate: "2026-07-20", MaintenanceType: "inspection", Description: "Quarterly inspection", PerformedBy: ptr(eng), Cost: 450},
		{EquipmentID: excavator, MaintenanceDate: "2026-08-18", MaintenanceType: "repair", Description: "Hydraulic hose replacement", Cost: 1280},
	}
	for _, l := range logs {
		if _, err := r.InsertMaintenanceLog(ctx, l); err != nil {
			return fmt.Errorf("seed maintenance logs: %w", err)
		}
	}

	reports := []domain.SafetyReport{
		{ProjectID: tower, ReportDate: "2026-08-10", InspectorName: "Priya Anand", ComplianceStatus: domain.ComplianceCompliant},
		{ProjectID: tower, ReportDate: "2026-07-02", InspectorName: "Priya Anand", ComplianceStatus: domain.ComplianceWarning, IncidentCount: 1, Description: "Missing guard rail on level 3"},
	}
	for _, s := range reports {
		if _, err := r.InsertSafetyReport(ctx, s); err != nil {
			return fmt.Errorf("seed safety reports: %w", err)
		}
	}
	return nil
}

// fixtureFiles maps file names in an import directory to loaders.
// Files are optional; order matters because of foreign keys.
var fixtureFiles = []string{
	"users.json",
	"projects.json",
	"tasks.json",
	"materials.json",
	"equipment.json",
	"maintenance_logs.json",
	"safety_reports.json",
}

// ImportDir loads JSON fixture files from dir. Missing files are
// skipped; a malformed file aborts the import.
func ImportDir(ctx context.Context, r repo.Repo, dir string) error {
	for _, name := range fixtureFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		if err := importFile(ctx, r, name, data); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func importFile(ctx context.Context, r repo.Repo, name string, data []byte) error {
	switch name {
	case "users.json":
		var items []domain.User
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, u := range items {
			if _, err := r.InsertUser(ctx, u); err != nil {
				return err
			}
		}
	case "projects.json":
		var items []domain.Project
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, p := range items {
			if _, err := r.InsertProject(ctx, p); err != nil {
				return err
			}
		}
	case "tasks.json":
		var items []domain.Task
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, t := range items {
			tx, err := r.DB.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			if _, err := r.InsertTask(ctx, tx, t); err != nil {
				tx.Rollback()
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
		}
	case "materials.json":
		var items []domain.Material
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, m := range items {
			if _, err := r.InsertMaterial(ctx, m); err != nil {
				return err
			}
		}
	case "equipment.json":
		var items []domain.Equipment
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, e := range items {
			if _, err := r.InsertEquipment(ctx, e); err != nil {
				return err
			}
		}
	case "maintenance_logs.json":
		var items []domain.MaintenanceLog
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, l := range items {
			if _, err := r.InsertMaintenanceLog(ctx, l); err != nil {
				return err
			}
		}
	case "safety_reports.json":
		var items []domain.SafetyReport
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, s := range items {
			if _, err := r.InsertSafetyReport(ctx, s); err != nil {
				return err
			}
		}
	}
	return nil
}
