package directory

// User is a CRM user who may own a PBX number.
//
// Extension is the raw number configured for the user; it can be a bare
// extension ("1001"), an external number, or a SIP URI ("sip:1001@pbx.local").
type User struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Role      string `json:"role" db:"role"`
	Extension string `json:"extension,omitempty" db:"phone_extension"`
}

// Customer is the CRM entity a caller number resolves to.
// Type names the owning module (Contacts, Accounts, Leads).
type Customer struct {
	ID     string `json:"id" db:"id"`
	Type   string `json:"type" db:"type"`
	Number string `json:"number" db:"phone"`
}

// RoutingCandidate is a (user, number) pair offered to the PBX for an inbound call.
// It is computed per request and never persisted.
type RoutingCandidate struct {
	UserID string
	Number string
}
