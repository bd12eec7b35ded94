package model

import "time"

// Status represents a client's current pipeline stage.
type Status string

// Pipeline stages in funnel order. The set is closed: a client is always in
// exactly one of these stages.
const (
	StatusLead                Status = "lead"
	StatusDeclined            Status = "declined"
	StatusAppointmentSet      Status = "appointment_set"
	StatusAppointmentKept     Status = "appointment_kept"
	StatusAgreementSigned     Status = "agreement_signed"
	StatusActive              Status = "active"
	StatusOnPause             Status = "on_pause"
	StatusAwaitingReplacement Status = "awaiting_replacement"
	StatusCanceled            Status = "canceled"
)

// AllStatuses lists every pipeline stage in display order.
var AllStatuses = []Status{
	StatusLead,
	StatusDeclined,
	StatusAppointmentSet,
	StatusAppointmentKept,
	StatusAgreementSigned,
	StatusActive,
	StatusOnPause,
	StatusAwaitingReplacement,
	StatusCanceled,
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known pipeline stage.
func (s Status) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Client is the core pipeline record.
//
// Version is a monotonic marker bumped on every mutation; it guards stale
// writes (a status confirmation carrying an old version is rejected rather
// than applied over newer local state).
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Franchise string    `json:"franchise,omitempty"`
	Status    Status    `json:"status"`
	Assignee  string    `json:"assignee,omitempty"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
