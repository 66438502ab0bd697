package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sitedeck/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// --- projects ---

func (r Repo) InsertProject(ctx context.Context, p domain.Project) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO projects(name,status,start_date,end_date,budget,manager_id) VALUES (?,?,?,?,?,?)`,
		p.Name, p.Status, p.StartDate, p.EndDate, p.Budget, nullableInt64Ptr(p.ManagerID))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	var p domain.Project
	var managerID sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,status,start_date,end_date,budget,manager_id FROM projects WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &p.Status, &p.StartDate, &p.EndDate, &p.Budget, &managerID)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	p.ManagerID = scanNullInt64(managerID)
	return p, err
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,status,start_date,end_date,budget,manager_id FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		var managerID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &p.StartDate, &p.EndDate, &p.Budget, &managerID); err != nil {
			return nil, err
		}
		p.ManagerID = scanNullInt64(managerID)
		res = append(res, p)
	}
	return res, rows.Err()
}

// --- tasks ---

type TaskFilters struct {
	ProjectID  int64
	Status     string
	AssignedTo int64
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO tasks(project_id,name,description,status,priority,assigned_to,due_date) VALUES (?,?,?,?,?,?,?)`,
		t.ProjectID, t.Name, nullable(t.Description), t.Status, t.Priority, nullableInt64Ptr(t.AssignedTo), t.DueDate)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	var t domain.Task
	var desc sql.NullString
	var assignedTo sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `SELECT id,project_id,name,COALESCE(description,''),status,priority,assigned_to,due_date FROM tasks WHERE id=?`, id).
		Scan(&t.ID, &t.ProjectID, &t.Name, &desc, &t.Status, &t.Priority, &assignedTo, &t.DueDate)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Description = desc.String
	t.AssignedTo = scanNullInt64(assignedTo)
	return t, nil
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	var sets []string
	var args []any
	// deterministic column order keeps the statement stable
	for _, col := range []string{"name", "description", "status", "priority", "assigned_to", "due_date"} {
		if v, ok := fields[col]; ok {
			sets = append(sets, col+"=?")
			args = append(args, v)
		}
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE tasks SET %s WHERE id=?`, strings.Join(sets, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != 0 {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AssignedTo != 0 {
		clauses = append(clauses, "assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,name,COALESCE(description,''),status,priority,assigned_to,due_date FROM tasks `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		var t domain.Task
		var desc sql.NullString
		var assignedTo sql.NullInt64
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Name, &desc, &t.Status, &t.Priority, &assignedTo, &t.DueDate); err != nil {
			return nil, err
		}
		t.Description = desc.String
		t.AssignedTo = scanNullInt64(assignedTo)
		res = append(res, t)
	}
	return res, rows.Err()
}

// --- materials ---

func (r Repo) InsertMaterial(ctx context.Context, m domain.Material) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO materials(project_id,name,quantity,unit_price,status,delivery_date) VALUES (?,?,?,?,?,?)`,
		m.ProjectID, m.Name, m.Quantity, m.UnitPrice, m.Status, m.DeliveryDate)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListMaterials(ctx context.Context, projectID int64) ([]domain.Material, error) {
	query := `SELECT id,project_id,name,quantity,unit_price,status,delivery_date FROM materials`
	var args []any
	if projectID != 0 {
		query += ` WHERE project_id=?`
		args = append(args, projectID)
	}
	rows, err := r.DB.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Material
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Name, &m.Quantity, &m.UnitPrice, &m.Status, &m.DeliveryDate); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// --- equipment ---

func (r Repo) InsertEquipment(ctx context.Context, e domain.Equipment) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO equipment(name,type,status,assigned_project,assigned_to,daily_cost,last_maintenance,next_maintenance) VALUES (?,?,?,?,?,?,?,?)`,
		e.Name, e.Type, e.Status, nullableInt64Ptr(e.AssignedProject), nullableInt64Ptr(e.AssignedTo), e.DailyCost, nullable(e.LastMaintenance), nullable(e.NextMaintenance))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,type,status,assigned_project,assigned_to,daily_cost,COALESCE(last_maintenance,''),COALESCE(next_maintenance,'') FROM equipment ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Equipment
	for rows.Next() {
		var e domain.Equipment
		var project, user sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Status, &project, &user, &e.DailyCost, &e.LastMaintenance, &e.NextMaintenance); err != nil {
			return nil, err
		}
		e.AssignedProject = scanNullInt64(project)
		e.AssignedTo = scanNullInt64(user)
		res = append(res, e)
	}
	return res, rows.Err()
}

// --- maintenance logs ---

func (r Repo) InsertMaintenanceLog(ctx context.Context, l domain.MaintenanceLog) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO maintenance_logs(equipment_id,maintenance_date,maintenance_type,description,performed_by,cost) VALUES (?,?,?,?,?,?)`,
		l.EquipmentID, l.MaintenanceDate, l.MaintenanceType, nullable(l.Description), nullableInt64Ptr(l.PerformedBy), l.Cost)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListMaintenanceLogs(ctx context.Context) ([]domain.MaintenanceLog, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,equipment_id,maintenance_date,maintenance_type,COALESCE(description,''),performed_by,cost FROM maintenance_logs ORDER BY maintenance_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.MaintenanceLog
	for rows.Next() {
		var l domain.MaintenanceLog
		var performedBy sql.NullInt64
		if err := rows.Scan(&l.ID, &l.EquipmentID, &l.MaintenanceDate, &l.MaintenanceType, &l.Description, &performedBy, &l.Cost); err != nil {
			return nil, err
		}
		l.PerformedBy = scanNullInt64(performedBy)
		res = append(res, l)
	}
	return res, rows.Err()
}

// --- safety reports ---

func (r Repo) InsertSafetyReport(ctx context.Context, s domain.SafetyReport) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO safety_reports(project_id,report_date,inspector_name,compliance_status,incident_count,description) VALUES (?,?,?,?,?,?)`,
		s.ProjectID, s.ReportDate, s.InspectorName, s.ComplianceStatus, s.IncidentCount, nullable(s.Description))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListSafetyReports(ctx context.Context, projectID int64) ([]domain.SafetyReport, error) {
	query := `SELECT id,project_id,report_date,inspector_name,compliance_status,incident_count,COALESCE(description,'') FROM safety_reports`
	var args []any
	if projectID != 0 {
		query += ` WHERE project_id=?`
		args = append(args, projectID)
	}
	rows, err := r.DB.QueryContext(ctx, query+` ORDER BY report_date DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SafetyReport
	for rows.Next() {
		var s domain.SafetyReport
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.ReportDate, &s.InspectorName, &s.ComplianceStatus, &s.IncidentCount, &s.Description); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// --- users ---

func (r Repo) InsertUser(ctx context.Context, u domain.User) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO users(name,role) VALUES (?,?)`, u.Name, u.Role)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,role FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}
