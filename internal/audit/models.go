package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block call handling on audit failures.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress is the resolved client IP (the PBX for webhooks).
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	CallID string `json:"call_id,omitempty" db:"call_id"`
	// Number is the dialed number for outbound attempts.
	Number string `json:"number,omitempty" db:"number"`

	// Outcome is "success" or "failure".
	Outcome string `json:"outcome,omitempty" db:"outcome"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeOutboundDial    EventType = "outbound_dial"
	EventTypeWebhookRejected EventType = "webhook_rejected"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
