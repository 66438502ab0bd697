package domain

// Status values live in the database as display strings, so the
// constants carry spaces rather than identifiers.
const (
	ProjectPlanning   = "Planning"
	ProjectInProgress = "In Progress"
	ProjectCompleted  = "Completed"
	ProjectOnHold     = "On Hold"
	ProjectCancelled  = "Cancelled"

	TaskPending    = "Pending"
	TaskInProgress = "In Progress"
	TaskCompleted  = "Completed"
	TaskDelayed    = "Delayed"
	TaskCancelled  = "Cancelled"

	EquipmentOperational      = "Operational"
	EquipmentUnderMaintenance = "Under Maintenance"
	EquipmentOutOfService     = "Out of Service"

	MaterialOrdered   = "Ordered"
	MaterialDelivered = "Delivered"

	ComplianceCompliant = "Compliant"
	ComplianceWarning   = "Warning Issued"
	ComplianceViolation = "Violation"
)

type Project struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Status    string  `json:"status" enum:"Planning,In Progress,Completed,On Hold,Cancelled"`
	StartDate string  `json:"start_date" format:"date"`
	EndDate   string  `json:"end_date" format:"date"`
	Budget    float64 `json:"budget"`
	ManagerID *int64  `json:"manager_id,omitempty"`
}

type Task struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status" enum:"Pending,In Progress,Completed,Delayed,Cancelled"`
	Priority    string `json:"priority" enum:"Low,Medium,High"`
	AssignedTo  *int64 `json:"assigned_to,omitempty"`
	DueDate     string `json:"due_date" format:"date"`
}

type Material struct {
	ID           int64   `json:"id"`
	ProjectID    int64   `json:"project_id"`
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Status       string  `json:"status" enum:"Ordered,Delivered"`
	DeliveryDate string  `json:"delivery_date" format:"date"`
}

type Equipment struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Status          string  `json:"status" enum:"Operational,Under Maintenance,Out of Service"`
	AssignedProject *int64  `json:"assigned_project,omitempty"`
	AssignedTo      *int64  `json:"assigned_to,omitempty"`
	DailyCost       float64 `json:"daily_cost"`
	LastMaintenance string  `json:"last_maintenance,omitempty" format:"date"`
	NextMaintenance string  `json:"next_maintenance,omitempty" format:"date"`
}

type MaintenanceLog struct {
	ID              int64   `json:"id"`
	EquipmentID     int64   `json:"equipment_id"`
	MaintenanceDate string  `json:"maintenance_date" format:"date"`
	MaintenanceType string  `json:"maintenance_type"`
	Description     string  `json:"description,omitempty"`
	PerformedBy     *int64  `json:"performed_by,omitempty"`
	Cost            float64 `json:"cost"`
}

type SafetyReport struct {
	ID               int64  `json:"id"`
	ProjectID        int64  `json:"project_id"`
	ReportDate       string `json:"report_date" format:"date"`
	InspectorName    string `json:"inspector_name"`
	ComplianceStatus string `json:"compliance_status" enum:"Compliant,Warning Issued,Violation"`
	IncidentCount    int    `json:"incident_count"`
	Description      string `json:"description,omitempty"`
}

type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Tile describes one dashboard widget: where it ranks and how wide it renders.
// Size is a display hint only and never participates in computation.
type Tile struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Size     string `json:"size" enum:"small,medium,large"`
	Priority int    `json:"priority"`
}

// DashboardLayout is the persisted tile ordering for one (user, role) pair.
type DashboardLayout struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Tiles     []Tile `json:"tiles"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// ChatMessage is one exchange with the assistant collaborator.
type ChatMessage struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	TS          string `json:"ts" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
