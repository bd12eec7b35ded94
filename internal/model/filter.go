package model

// ClientFilter holds criteria for querying clients.
type ClientFilter struct {
	Status    []Status `json:"status,omitempty"`
	Assignee  string   `json:"assignee,omitempty"`
	Franchise string   `json:"franchise,omitempty"`
	Search    string   `json:"search,omitempty"` // substring match on name/email/phone/company
	Sort      string   `json:"sort,omitempty"`   // e.g. "-updated_at", "name"; prefix "-" = descending
	Limit     int      `json:"limit,omitempty"`
	Offset    int      `json:"offset,omitempty"`
}
