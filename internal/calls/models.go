package calls

import (
	"strings"
	"time"
)

// Record is the per-call session state, keyed by the provider call id (SourceUUID).
//
// Invariants:
// - CallID is immutable and identifies exactly one call for its lifetime.
// - A record is created once, by the start event. Every later event looks it up.
// - Status only changes through the state machine (start, dial, hangup, unanswered).
type Record struct {
	CallID    string    `json:"call_id" db:"call_id"`
	Direction Direction `json:"direction" db:"direction"`
	Status    Status    `json:"status" db:"status"`

	CustomerNumber string `json:"customer_number" db:"customer_number"`
	CustomerID     string `json:"customer_id,omitempty" db:"customer_id"`
	CustomerType   string `json:"customer_type,omitempty" db:"customer_type"`

	// AssignedUserID is empty while no CRM user owns the call.
	AssignedUserID string `json:"assigned_user_id,omitempty" db:"assigned_user_id"`

	// Gateway names the connector that created the record.
	Gateway string `json:"gateway" db:"gateway"`

	StartTime time.Time  `json:"start_time" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`

	TotalDuration    time.Duration `json:"total_duration" db:"total_duration_seconds"`
	BillableDuration time.Duration `json:"billable_duration" db:"billable_duration_seconds"`

	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ParseDirection accepts the PBX direction field case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionInbound:
		return DirectionInbound, true
	case DirectionOutbound:
		return DirectionOutbound, true
	default:
		return "", false
	}
}

// Status is a canonical call status or, for unmapped hangup causes,
// the raw cause text reported by the PBX.
type Status string

const (
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusNoAnswer   Status = "no-answer"
	StatusBusy       Status = "busy"
)

// Update is a partial update of a Record. Nil fields are left untouched.
type Update struct {
	Status           *Status
	AssignedUserID   *string
	StartTime        *time.Time
	EndTime          *time.Time
	TotalDuration    *time.Duration
	BillableDuration *time.Duration
	RecordingURL     *string
}

func (u Update) IsEmpty() bool {
	return u.Status == nil &&
		u.AssignedUserID == nil &&
		u.StartTime == nil &&
		u.EndTime == nil &&
		u.TotalDuration == nil &&
		u.BillableDuration == nil &&
		u.RecordingURL == nil
}

// Apply copies the supplied fields onto r.
func (u Update) Apply(r *Record) {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.AssignedUserID != nil {
		r.AssignedUserID = *u.AssignedUserID
	}
	if u.StartTime != nil {
		r.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		t := *u.EndTime
		r.EndTime = &t
	}
	if u.TotalDuration != nil {
		r.TotalDuration = *u.TotalDuration
	}
	if u.BillableDuration != nil {
		r.BillableDuration = *u.BillableDuration
	}
	if u.RecordingURL != nil {
		r.RecordingURL = *u.RecordingURL
	}
}

func ptr[T any](v T) *T { return &v }
