package calls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pbx-connector/internal/directory"
)

// Directory is the subset of the user/number directory the state machine needs.
type Directory interface {
	UserByNumber(ctx context.Context, number string) (directory.User, error)
	CustomerByNumber(ctx context.Context, number string) (directory.Customer, error)
}

// StateMachine applies PBX lifecycle events to call records.
//
//	ringing -> in-progress -> completed | no-answer | busy | <raw cause>
//
// Only the start event creates a record. Every other event requires the record
// to exist and fails with a NotFoundError otherwise; events are never buffered or reordered.
// Callers serialize events per call id (see Locker).
type StateMachine struct {
	Repo      Repository
	Directory Directory

	// Gateway is stamped on created records.
	Gateway string

	Now func() time.Time
	Log *slog.Logger
}

func NewStateMachine(repo Repository, dir Directory, gateway string) *StateMachine {
	return &StateMachine{Repo: repo, Directory: dir, Gateway: gateway, Now: time.Now, Log: slog.Default()}
}

// OnStart creates the record for a new call with status ringing.
//
// The customer number is From when present, otherwise To. The customer is
// resolved against the directory, as is the user behind the other party number;
// both lookups are best-effort.
func (m *StateMachine) OnStart(ctx context.Context, ev StartEvent) (Record, error) {
	callID := strings.TrimSpace(ev.CallID)
	from := strings.TrimSpace(ev.From)
	to := strings.TrimSpace(ev.To)

	var missing []string
	if callID == "" {
		missing = append(missing, "SourceUUID")
	}
	if strings.TrimSpace(ev.Direction) == "" {
		missing = append(missing, "Direction")
	}
	if from == "" && to == "" {
		missing = append(missing, "From/To")
	}
	if len(missing) > 0 {
		return Record{}, &RecordCreationError{CallID: callID, Missing: missing}
	}
	direction, ok := ParseDirection(ev.Direction)
	if !ok {
		return Record{}, &RecordCreationError{CallID: callID, Reason: fmt.Sprintf("unknown direction %q", ev.Direction)}
	}

	customerNumber, otherNumber := from, to
	if customerNumber == "" {
		customerNumber, otherNumber = to, ""
	}

	rec := Record{
		CallID:         callID,
		Direction:      direction,
		Status:         StatusRinging,
		CustomerNumber: customerNumber,
		Gateway:        m.Gateway,
		StartTime:      m.parseTimeOrNow(ev.StartTime, "StartTime", callID),
	}

	if c, err := m.Directory.CustomerByNumber(ctx, customerNumber); err == nil {
		rec.CustomerID = c.ID
		rec.CustomerType = c.Type
	} else if !errors.Is(err, directory.ErrNotFound) {
		m.log().Warn("customer lookup failed", "call_id", callID, "err", err)
	}
	if otherNumber != "" {
		if u, err := m.Directory.UserByNumber(ctx, otherNumber); err == nil {
			rec.AssignedUserID = u.ID
		} else if !errors.Is(err, directory.ErrNotFound) {
			m.log().Warn("user lookup failed", "call_id", callID, "err", err)
		}
	}

	if err := m.Repo.Create(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("create call %q: %w", callID, err)
	}
	return rec, nil
}

// OnDial marks the call in progress and assigns the owning user.
//
// Inbound: the answering party is looked up and assigned; no match clears the assignment.
// Outbound: the caller is looked up and assigned only when a user matches.
func (m *StateMachine) OnDial(ctx context.Context, ev DialEvent) (Record, error) {
	rec, err := m.load(ctx, ev.CallID, "dial")
	if err != nil {
		return Record{}, err
	}

	u := Update{Status: ptr(StatusInProgress)}
	switch rec.Direction {
	case DirectionInbound:
		user, err := m.Directory.UserByNumber(ctx, ev.AnsweredBy)
		switch {
		case err == nil:
			u.AssignedUserID = ptr(user.ID)
		case errors.Is(err, directory.ErrNotFound):
			u.AssignedUserID = ptr("")
		default:
			return Record{}, fmt.Errorf("resolve answering user: %w", err)
		}
	default:
		user, err := m.Directory.UserByNumber(ctx, ev.Caller)
		switch {
		case err == nil:
			u.AssignedUserID = ptr(user.ID)
		case errors.Is(err, directory.ErrNotFound):
		default:
			return Record{}, fmt.Errorf("resolve calling user: %w", err)
		}
	}

	return m.update(ctx, rec.CallID, "dial", u)
}

// OnEnd stores end time and durations. It does not touch the status;
// that is decided by the hangup event.
func (m *StateMachine) OnEnd(ctx context.Context, ev EndEvent) (Record, error) {
	rec, err := m.load(ctx, ev.CallID, "end")
	if err != nil {
		return Record{}, err
	}

	var u Update
	if t, ok := parseTime(ev.StartTime); ok {
		u.StartTime = &t
	}
	if t, ok := parseTime(ev.EndTime); ok {
		u.EndTime = &t
	} else {
		m.log().Warn("end event without usable endtime", "call_id", rec.CallID, "endtime", ev.EndTime)
	}
	if d, ok := parseSeconds(ev.Duration); ok {
		u.TotalDuration = &d
	}
	if d, ok := parseSeconds(ev.BillableSeconds); ok {
		u.BillableDuration = &d
	}
	return m.update(ctx, rec.CallID, "end", u)
}

// OnHangup maps the hangup cause to the final status. When the PBX only sends
// this single terminal callback it also carries EndTime and Duration, which are
// stored when both are present.
func (m *StateMachine) OnHangup(ctx context.Context, ev HangupEvent) (Record, error) {
	rec, err := m.load(ctx, ev.CallID, "hangup")
	if err != nil {
		return Record{}, err
	}

	var u Update
	if cause := ev.Cause; cause != "" {
		u.Status = ptr(MapCause(cause, ev.SecondaryCause))
	} else {
		m.log().Warn("hangup event without causetxt, status unchanged", "call_id", rec.CallID)
	}

	if strings.TrimSpace(ev.EndTime) != "" && strings.TrimSpace(ev.Duration) != "" {
		end, okEnd := parseTime(ev.EndTime)
		dur, okDur := parseSeconds(ev.Duration)
		if okEnd && okDur {
			u.EndTime = &end
			u.TotalDuration = &dur
		} else {
			m.log().Warn("hangup event with unparseable end fields", "call_id", rec.CallID, "endtime", ev.EndTime, "duration", ev.Duration)
		}
	}
	return m.update(ctx, rec.CallID, "hangup", u)
}

// OnRecording attaches the recording link.
func (m *StateMachine) OnRecording(ctx context.Context, ev RecordingEvent) (Record, error) {
	rec, err := m.load(ctx, ev.CallID, "recording")
	if err != nil {
		return Record{}, err
	}
	return m.update(ctx, rec.CallID, "recording", Update{RecordingURL: ptr(strings.TrimSpace(ev.RecordingURL))})
}

// MarkUnanswered closes a call nobody could be offered: status no-answer,
// start and end both set to now.
func (m *StateMachine) MarkUnanswered(ctx context.Context, callID string) (Record, error) {
	now := m.now()
	return m.update(ctx, callID, "unanswered", Update{
		Status:    ptr(StatusNoAnswer),
		StartTime: &now,
		EndTime:   &now,
	})
}

func (m *StateMachine) load(ctx context.Context, callID, event string) (Record, error) {
	callID = strings.TrimSpace(callID)
	rec, err := m.Repo.FindByCallID(ctx, callID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, &NotFoundError{CallID: callID, Event: event}
		}
		return Record{}, fmt.Errorf("load call %q: %w", callID, err)
	}
	return rec, nil
}

func (m *StateMachine) update(ctx context.Context, callID, event string, u Update) (Record, error) {
	rec, err := m.Repo.Update(ctx, callID, u)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, &NotFoundError{CallID: callID, Event: event}
		}
		return Record{}, fmt.Errorf("update call %q: %w", callID, err)
	}
	return rec, nil
}

func (m *StateMachine) parseTimeOrNow(raw, field, callID string) time.Time {
	if t, ok := parseTime(raw); ok {
		return t
	}
	if strings.TrimSpace(raw) != "" {
		m.log().Warn("unparseable timestamp, using current time", "call_id", callID, "field", field, "value", raw)
	}
	return m.now()
}

func (m *StateMachine) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now().UTC()
}

func (m *StateMachine) log() *slog.Logger {
	if m.Log == nil {
		return slog.Default()
	}
	return m.Log
}
