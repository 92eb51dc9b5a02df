package bug

import "time"

// Status is the lifecycle state of a bug report. Any status may replace any
// other; there is no enforced transition order.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// Statuses lists the accepted status values in display order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists the accepted severity values in display order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) Valid() bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

const (
	DefaultStatus   = StatusOpen
	DefaultSeverity = SeverityMedium

	// MaxTitleLength is measured in characters after trimming.
	MaxTitleLength = 100
)

// Bug is a persisted bug report. ID, CreatedAt and UpdatedAt are owned by the
// store.
type Bug struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Severity    Severity  `json:"severity"`
	ReportedBy  string    `json:"reportedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input is the client payload for create and update. Status and Severity are
// pointers so an omitted value can be told apart from an explicit one.
type Input struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ReportedBy  string    `json:"reportedBy"`
	Status      *Status   `json:"status,omitempty"`
	Severity    *Severity `json:"severity,omitempty"`
}
