package model

import "time"

// Ticket status values. No transition graph is enforced: any authorized
// actor may set any status in one step.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

const (
	TypeBug     = "bug"
	TypeTask    = "task"
	TypeFeature = "feature"
)

func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh || p == PriorityCritical
}

func ValidTicketType(t string) bool {
	return t == TypeBug || t == TypeTask || t == TypeFeature
}

type Ticket struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	Priority    string       `json:"priority"`
	Type        string       `json:"type"`
	ProjectID   int          `json:"project_id"`
	ReporterID  int          `json:"reporter_id"`
	AssigneeID  *int         `json:"assignee_id"`
	Assignee    *UserSummary `json:"assignee,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   *time.Time   `json:"updated_at"`
}

// TicketFilter narrows a project ticket listing. Zero values are ignored;
// set filters combine with AND.
type TicketFilter struct {
	Status     string
	Priority   string
	AssigneeID int
	Search     string // case-insensitive substring over title or description
}
