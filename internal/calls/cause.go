package calls

// causeRule maps a PBX hangup cause to a status.
// An empty Secondary matches any secondary cause.
type causeRule struct {
	Primary   string
	Secondary string
	Status    Status
}

// Rules are evaluated in order; the first match wins.
var causeTable = []causeRule{
	{Primary: "Normal Clearing", Secondary: "NO ANSWER", Status: StatusNoAnswer},
	{Primary: "Normal Clearing", Status: StatusCompleted},
	{Primary: "User busy", Status: StatusBusy},
	{Primary: "Call Rejected", Status: StatusBusy},
}

// MapCause returns the status for a hangup. Matching is exact and case-sensitive.
// Causes missing from the table become the status verbatim.
func MapCause(primary, secondary string) Status {
	for _, r := range causeTable {
		if r.Primary != primary {
			continue
		}
		if r.Secondary != "" && r.Secondary != secondary {
			continue
		}
		return r.Status
	}
	return Status(primary)
}
