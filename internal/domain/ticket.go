package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. There is no
// enforced ordering between them; any state may be set directly.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether the status is one of the five known values.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Terminal reports whether entering this status stamps closedAt.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Valid reports whether the priority is a known value.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// IssueType categorizes what the ticket is about.
type IssueType string

const (
	IssueTypeHardware      IssueType = "hardware"
	IssueTypeSoftware      IssueType = "software"
	IssueTypeNetworking    IssueType = "networking"
	IssueTypeAccessControl IssueType = "access_control"
	IssueTypeEmail         IssueType = "email"
	IssueTypePrinter       IssueType = "printer"
	IssueTypePhone         IssueType = "phone"
	IssueTypeOther         IssueType = "other"
)

// Valid reports whether the issue type is a known value.
func (t IssueType) Valid() bool {
	switch t {
	case IssueTypeHardware, IssueTypeSoftware, IssueTypeNetworking,
		IssueTypeAccessControl, IssueTypeEmail, IssueTypePrinter,
		IssueTypePhone, IssueTypeOther:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. UserID is nullable: when
// the creating account is deleted the ticket survives with the reference
// nulled out. ClosedAt is stamped on entering resolved/closed and is never
// cleared, even if the ticket is later reopened.
type Ticket struct {
	ID           int64
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	IssueType    *IssueType
	UserID       *int64
	AssignedTo   *int64
	SLACategory  *string
	DueAt        *time.Time
	ClosedAt     *time.Time
	Department   *string
	CostEstimate *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Joined projections; populated only by queries that include relations.
	Creator  *UserRef
	Assignee *UserRef
	Comments []Comment
}

// StatusCount is a per-status aggregation row.
type StatusCount struct {
	Status TicketStatus `json:"status"`
	Count  int64        `json:"count"`
}

// TicketStats aggregates ticket numbers for the dashboard.
type TicketStats struct {
	Total               int64             `json:"total"`
	Open                int64             `json:"open"`
	Assigned            int64             `json:"assigned"`
	InProgress          int64             `json:"inProgress"`
	Resolved            int64             `json:"resolved"`
	Closed              int64             `json:"closed"`
	AvgResolutionHours  int64             `json:"avgResolutionHours"`
	TicketsByDepartment []DepartmentCount `json:"ticketsByDepartment"`
}
