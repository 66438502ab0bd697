// Package dashboard holds the pure parts of the dashboard service:
// role-scoped dataset filtering, aggregate statistics, default tile
// layouts and chart recommendation. Nothing in here touches the
// database; the engine feeds it data and persists the results.
package dashboard

import (
	"strings"

	"sitedeck/internal/domain"
)

// Dataset is everything the company tracks, as loaded from storage.
type Dataset struct {
	Projects        []domain.Project
	Tasks           []domain.Task
	Equipment       []domain.Equipment
	Materials       []domain.Material
	SafetyReports   []domain.SafetyReport
	Users           []domain.User
	MaintenanceLogs []domain.MaintenanceLog
}

// FinancialSummary is derived from the dataset, never stored.
type FinancialSummary struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalExpenses float64 `json:"total_expenses"`
	Profit        float64 `json:"profit"`
}

// RoleView is the slice of the dataset a given role may see. Sections
// outside the role's scope stay nil and are omitted from JSON.
type RoleView struct {
	Projects         []domain.Project        `json:"projects"`
	Tasks            []domain.Task           `json:"tasks"`
	Equipment        []domain.Equipment      `json:"equipment"`
	Materials        []domain.Material       `json:"materials,omitempty"`
	SafetyReports    []domain.SafetyReport   `json:"safetyReports,omitempty"`
	Users            []domain.User           `json:"users,omitempty"`
	MaintenanceLogs  []domain.MaintenanceLog `json:"maintenanceLogs,omitempty"`
	FinancialSummary *FinancialSummary       `json:"financialSummary,omitempty"`
}

// FilterForRole returns the role's view of the dataset. Roles are
// matched case-insensitively; anything unrecognized gets the base view
// of projects, tasks and equipment.
func FilterForRole(role string, d Dataset) RoleView {
	v := RoleView{
		Projects:  d.Projects,
		Tasks:     d.Tasks,
		Equipment: d.Equipment,
	}
	switch strings.ToLower(role) {
	case "ceo":
		v.Materials = d.Materials
		v.SafetyReports = d.SafetyReports
		v.Users = d.Users
		v.MaintenanceLogs = d.MaintenanceLogs
		fs := Financials(d)
		v.FinancialSummary = &fs
	case "project-manager":
		v.Materials = d.Materials
		v.Users = d.Users
	case "safety-officer":
		v.SafetyReports = d.SafetyReports
	case "equipment-manager":
		v.MaintenanceLogs = d.MaintenanceLogs
	}
	return v
}

// Financials derives the company-level summary: revenue is the sum of
// project budgets, expenses are material plus maintenance spend.
func Financials(d Dataset) FinancialSummary {
	var revenue float64
	for _, p := range d.Projects {
		revenue += p.Budget
	}
	expenses := TotalMaterialCost(d.Materials)
	for _, l := range d.MaintenanceLogs {
		expenses += l.Cost
	}
	return FinancialSummary{
		TotalRevenue:  revenue,
		TotalExpenses: expenses,
		Profit:        revenue - expenses,
	}
}
