package dashboard

import (
	"math"
	"time"

	"sitedeck/internal/domain"
)

// Stats is the cross-entity summary the dashboard tiles render.
type Stats struct {
	TotalProjects      int     `json:"total_projects"`
	ActiveProjects     int     `json:"active_projects"`
	TotalTasks         int     `json:"total_tasks"`
	CompletedTasks     int     `json:"completed_tasks"`
	TaskCompletionRate float64 `json:"task_completion_rate"`
	TotalMaterialCost  float64 `json:"total_material_cost"`
	EquipmentUsageRate float64 `json:"equipment_usage_rate"`
	MaintenanceCost    float64 `json:"maintenance_cost"`
	ComplianceRate     float64 `json:"compliance_rate"`
	OpenIncidents      int     `json:"open_incidents"`
}

// ComputeStats aggregates the full dataset. Every rate is 0 when its
// denominator is empty.
func ComputeStats(d Dataset, now time.Time) Stats {
	active := 0
	for _, p := range d.Projects {
		if p.Status == domain.ProjectInProgress {
			active++
		}
	}
	completed := 0
	for _, t := range d.Tasks {
		if t.Status == domain.TaskCompleted {
			completed++
		}
	}
	incidents := 0
	for _, s := range d.SafetyReports {
		incidents += s.IncidentCount
	}
	return Stats{
		TotalProjects:      len(d.Projects),
		ActiveProjects:     active,
		TotalTasks:         len(d.Tasks),
		CompletedTasks:     completed,
		TaskCompletionRate: TaskCompletionRate(d.Tasks),
		TotalMaterialCost:  TotalMaterialCost(d.Materials),
		EquipmentUsageRate: EquipmentUsageRate(d.Equipment),
		MaintenanceCost:    MaintenanceCost(d.MaintenanceLogs, "", now),
		ComplianceRate:     ComplianceRate(d.SafetyReports),
		OpenIncidents:      incidents,
	}
}

func TaskCompletionRate(tasks []domain.Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	completed := 0
	for _, t := range tasks {
		if t.Status == domain.TaskCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(tasks)) * 100
}

func TotalMaterialCost(materials []domain.Material) float64 {
	var total float64
	for _, m := range materials {
		total += m.Quantity * m.UnitPrice
	}
	return total
}

func EquipmentUsageRate(equipment []domain.Equipment) float64 {
	if len(equipment) == 0 {
		return 0
	}
	operational := 0
	for _, e := range equipment {
		if e.Status == domain.EquipmentOperational {
			operational++
		}
	}
	return float64(operational) / float64(len(equipment)) * 100
}

// MaintenanceCost sums log costs, optionally restricted to a trailing
// window ending at now: "month", "quarter" or "year". The window is
// inclusive at both ends; logs with unparseable dates are skipped when
// a period is set. An unrecognized period behaves like no period.
func MaintenanceCost(logs []domain.MaintenanceLog, period string, now time.Time) float64 {
	var total float64
	for _, l := range FilterMaintenanceLogs(logs, period, now) {
		total += l.Cost
	}
	return total
}

// FilterMaintenanceLogs keeps the logs inside the trailing window; an
// empty or unrecognized period keeps everything.
func FilterMaintenanceLogs(logs []domain.MaintenanceLog, period string, now time.Time) []domain.MaintenanceLog {
	var since time.Time
	switch period {
	case "month":
		since = now.AddDate(0, -1, 0)
	case "quarter":
		since = now.AddDate(0, -3, 0)
	case "year":
		since = now.AddDate(-1, 0, 0)
	default:
		return logs
	}
	// log dates carry no clock, so the window floor is compared at midnight
	since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
	var kept []domain.MaintenanceLog
	for _, l := range logs {
		d, err := time.Parse("2006-01-02", l.MaintenanceDate)
		if err != nil {
			continue
		}
		if d.Before(since) || d.After(now) {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

func ComplianceRate(reports []domain.SafetyReport) float64 {
	if len(reports) == 0 {
		return 0
	}
	compliant := 0
	for _, s := range reports {
		if s.ComplianceStatus == domain.ComplianceCompliant {
			compliant++
		}
	}
	return float64(compliant) / float64(len(reports)) * 100
}

// ProjectCompletion is the rounded percentage of completed tasks in a
// project, 0 when the project has no tasks.
func ProjectCompletion(tasks []domain.Task, projectID int64) int {
	total, completed := 0, 0
	for _, t := range tasks {
		if t.ProjectID != projectID {
			continue
		}
		total++
		if t.Status == domain.TaskCompleted {
			completed++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
