package telephony

import (
	"net/url"
	"strings"

	"pbx-connector/internal/calls"
)

// EventKind is the lifecycle milestone a webhook reports.
type EventKind string

const (
	EventStart     EventKind = "start"
	EventDial      EventKind = "dial"
	EventEnd       EventKind = "end"
	EventHangup    EventKind = "hangup"
	EventRecording EventKind = "recording"
)

var eventAliases = map[string]EventKind{
	"start":      EventStart,
	"ringing":    EventStart,
	"startapp":   EventStart,
	"dial":       EventDial,
	"answer":     EventDial,
	"answered":   EventDial,
	"dialanswer": EventDial,
	"end":        EventEnd,
	"endcall":    EventEnd,
	"hangup":     EventHangup,
	"recording":  EventRecording,
	"record":     EventRecording,
}

// ParseEventKind resolves a PBX event name, ignoring case.
func ParseEventKind(name string) (EventKind, bool) {
	k, ok := eventAliases[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// Event is one webhook as delivered: its name and raw parameters.
type Event struct {
	Name   string
	Params url.Values
}

// CallID is the call the event refers to, whatever its kind.
func (e Event) CallID() string {
	return e.first("callUUID", "SourceUUID")
}

// CallerNumber is the number the PBX reports the caller dialed from.
func (e Event) CallerNumber() string {
	return e.first("callerIdNumber", "From")
}

func (e Event) Start() calls.StartEvent {
	return calls.StartEvent{
		CallID:    e.first("SourceUUID", "callUUID"),
		Direction: e.get("Direction"),
		From:      e.first("From", "callerIdNumber"),
		To:        e.get("To"),
		StartTime: e.get("StartTime"),
	}
}

func (e Event) Dial() calls.DialEvent {
	return calls.DialEvent{
		CallID:     e.CallID(),
		Caller:     e.get("callerid1"),
		AnsweredBy: e.get("callerid2"),
	}
}

func (e Event) End() calls.EndEvent {
	return calls.EndEvent{
		CallID:          e.CallID(),
		StartTime:       e.get("starttime"),
		EndTime:         e.get("endtime"),
		Duration:        e.get("duration"),
		BillableSeconds: e.get("billableseconds"),
	}
}

// Hangup reads the hangup fields. EndTime and Duration are matched exactly:
// the lower-case endtime/duration of an end event are a different contract.
func (e Event) Hangup() calls.HangupEvent {
	return calls.HangupEvent{
		CallID:         e.CallID(),
		Cause:          e.get("causetxt"),
		SecondaryCause: e.get("HangupCause"),
		EndTime:        e.exact("EndTime"),
		Duration:       e.exact("Duration"),
	}
}

func (e Event) Recording() calls.RecordingEvent {
	return calls.RecordingEvent{
		CallID:       e.CallID(),
		RecordingURL: e.get("recordinglink"),
	}
}

func (e Event) first(keys ...string) string {
	for _, k := range keys {
		if v := e.get(k); v != "" {
			return v
		}
	}
	return ""
}

// get looks the key up exactly, then case-insensitively.
func (e Event) get(key string) string {
	if v := e.exact(key); v != "" {
		return v
	}
	for k, vs := range e.Params {
		if strings.EqualFold(k, key) && len(vs) > 0 {
			if v := strings.TrimSpace(vs[0]); v != "" {
				return v
			}
		}
	}
	return ""
}

func (e Event) exact(key string) string {
	return strings.TrimSpace(e.Params.Get(key))
}
