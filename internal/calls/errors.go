package calls

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("calls: record not found")
	ErrDuplicate = errors.New("calls: record already exists")
)

// RecordCreationError is returned by the start event when the identity of the
// call cannot be established. It is not fatal: callers answer with an unrouted response.
type RecordCreationError struct {
	CallID  string
	Missing []string
	Reason  string
}

func (e *RecordCreationError) Error() string {
	var b strings.Builder
	b.WriteString("calls: cannot create record")
	if e.CallID != "" {
		fmt.Fprintf(&b, " for %q", e.CallID)
	}
	if len(e.Missing) > 0 {
		b.WriteString(": missing ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// NotFoundError reports an event for a call id that has no record.
// The start event must always precede it, so this is an ordering fault at the PBX.
type NotFoundError struct {
	CallID string
	Event  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("calls: %s event for unknown call %q", e.Event, e.CallID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
