package telephony

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"pbx-connector/internal/calls"
	"pbx-connector/internal/directory"
	"pbx-connector/internal/rbac"
)

type routerFixture struct {
	router *Router
	repo   *calls.MemoryRepo
	dir    *directory.MemoryDirectory
	now    time.Time
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	repo := calls.NewMemoryRepo()
	dir := directory.NewMemoryDirectory()
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	machine := calls.NewStateMachine(repo, dir, "PBXManager")
	machine.Now = func() time.Time { return now }
	machine.Log = quietLogger()

	responses := ResponseBuilder{
		Permissions: rbac.NewRoleChecker(dir),
		Trunk:       "office.trunk",
		Log:         quietLogger(),
	}
	return &routerFixture{
		router: NewRouter(machine, dir, responses, calls.NewKeyedLocker()),
		repo:   repo,
		dir:    dir,
		now:    now,
	}
}

func form(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func (f *routerFixture) record(t *testing.T, callID string) calls.Record {
	t.Helper()
	rec, err := f.repo.FindByCallID(context.Background(), callID)
	if err != nil {
		t.Fatalf("find %s: %v", callID, err)
	}
	return rec
}

func TestRouter_InboundLifecycle(t *testing.T) {
	f := newRouterFixture(t)
	f.dir.PutUser(directory.User{ID: "42", Role: rbac.RoleAgent, Extension: "1001"})
	ctx := context.Background()

	doc := f.router.Handle(ctx, Event{Name: "ringing", Params: form(
		"SourceUUID", "uuid-1", "Direction", "inbound", "From", "2005", "StartTime", "2024-03-01 09:29:58",
	)})
	if !strings.Contains(doc.String(), "<Number>SIP/1001</Number>") {
		t.Fatalf("expected user offered the call: %s", doc)
	}

	doc = f.router.Handle(ctx, Event{Name: "DialAnswer", Params: form("callUUID", "uuid-1", "callerid1", "2005", "callerid2", "1001")})
	if doc.String() != FailureDocument().String() {
		t.Fatalf("expected failure document shape for non-start events: %s", doc)
	}
	if rec := f.record(t, "uuid-1"); rec.Status != calls.StatusInProgress {
		t.Fatalf("expected in-progress, got %q", rec.Status)
	}

	f.router.Handle(ctx, Event{Name: "hangup", Params: form("callUUID", "uuid-1", "causetxt", "Normal Clearing")})
	f.router.Handle(ctx, Event{Name: "record", Params: form("callUUID", "uuid-1", "recordinglink", "http://pbx/rec/1.wav")})

	rec := f.record(t, "uuid-1")
	if rec.Status != calls.StatusCompleted || rec.AssignedUserID != "42" {
		t.Fatalf("unexpected final record: %+v", rec)
	}
	if rec.RecordingURL != "http://pbx/rec/1.wav" {
		t.Fatalf("expected recording url, got %q", rec.RecordingURL)
	}
}

func TestRouter_EmptyDirectoryClosesInboundCall(t *testing.T) {
	f := newRouterFixture(t)

	doc := f.router.Handle(context.Background(), Event{Name: "start", Params: form(
		"SourceUUID", "uuid-2", "Direction", "inbound", "From", "2005",
	)})
	if !strings.Contains(doc.String(), "<ConfiguredNumber>empty</ConfiguredNumber>") {
		t.Fatalf("expected empty configuration marker: %s", doc)
	}
	rec := f.record(t, "uuid-2")
	if rec.Status != calls.StatusNoAnswer {
		t.Fatalf("expected no-answer, got %q", rec.Status)
	}
	if rec.EndTime == nil || !rec.StartTime.Equal(*rec.EndTime) || !rec.StartTime.Equal(f.now) {
		t.Fatalf("expected start = end = now, got %v / %v", rec.StartTime, rec.EndTime)
	}
}

func TestRouter_SelfNumberExcluded(t *testing.T) {
	f := newRouterFixture(t)
	f.dir.PutUser(directory.User{ID: "1", Role: rbac.RoleAgent, Extension: "1001"})
	f.dir.PutUser(directory.User{ID: "2", Role: rbac.RoleAgent, Extension: "1002"})

	doc := f.router.Handle(context.Background(), Event{Name: "start", Params: form(
		"SourceUUID", "uuid-3", "Direction", "inbound", "From", "1001", "callerIdNumber", "1001",
	)})
	if n := strings.Count(doc.String(), "<Number>"); n != 1 {
		t.Fatalf("expected exactly one number, got %d: %s", n, doc)
	}
	if !strings.Contains(doc.String(), "SIP/1002") {
		t.Fatalf("expected the other user: %s", doc)
	}
}

func TestRouter_OutboundStartDialsCustomer(t *testing.T) {
	f := newRouterFixture(t)
	doc := f.router.Handle(context.Background(), Event{Name: "StartApp", Params: form(
		"SourceUUID", "uuid-4", "Direction", "outbound", "To", "5551234",
	)})
	want := `<?xml version="1.0" encoding="UTF-8"?><Response><Dial><Authentication>Success</Authentication><Number>SIP/5551234@office.trunk</Number></Dial></Response>`
	if doc.String() != want {
		t.Fatalf("got %s, want %s", doc, want)
	}
}

func TestRouter_FailuresAnswerFailureDocument(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()
	failure := FailureDocument().String()

	cases := []Event{
		{Name: "transfer", Params: form("callUUID", "x")},
		{Name: "start", Params: form("Direction", "inbound", "From", "2005")},
		{Name: "start", Params: form("SourceUUID", "x", "Direction", "sideways", "From", "2005")},
		{Name: "dial", Params: form("callUUID", "never-started", "callerid2", "1001")},
		{Name: "hangup", Params: form("callUUID", "never-started", "causetxt", "User busy")},
	}
	for _, ev := range cases {
		if got := f.router.Handle(ctx, ev).String(); got != failure {
			t.Fatalf("%s: expected failure document, got %s", ev.Name, got)
		}
	}
	if _, err := f.repo.FindByCallID(ctx, "never-started"); !errors.Is(err, calls.ErrNotFound) {
		t.Fatalf("expected no record created for out-of-order events, got %v", err)
	}
}

func TestRouter_DuplicateStartKeepsRecord(t *testing.T) {
	f := newRouterFixture(t)
	f.dir.PutUser(directory.User{ID: "1", Role: rbac.RoleAgent, Extension: "1001"})
	ctx := context.Background()
	start := Event{Name: "start", Params: form("SourceUUID", "uuid-5", "Direction", "inbound", "From", "2005")}

	f.router.Handle(ctx, start)
	f.router.Handle(ctx, Event{Name: "dial", Params: form("callUUID", "uuid-5", "callerid2", "1001")})
	if got := f.router.Handle(ctx, start).String(); got != FailureDocument().String() {
		t.Fatalf("expected failure document for duplicate start, got %s", got)
	}
	if rec := f.record(t, "uuid-5"); rec.Status != calls.StatusInProgress {
		t.Fatalf("duplicate start must not reset the call, got %q", rec.Status)
	}
}

func TestRouter_ConcurrentEventsOnOneCall(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()
	f.router.Handle(ctx, Event{Name: "start", Params: form("SourceUUID", "uuid-6", "Direction", "outbound", "To", "5551234")})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.router.Handle(ctx, Event{Name: "end", Params: form("callUUID", "uuid-6", "endtime", "1709285500", "duration", "40", "billableseconds", "35")})
	}()
	go func() {
		defer wg.Done()
		f.router.Handle(ctx, Event{Name: "recording", Params: form("callUUID", "uuid-6", "recordinglink", "http://pbx/rec/6.wav")})
	}()
	wg.Wait()

	rec := f.record(t, "uuid-6")
	if rec.TotalDuration != 40*time.Second || rec.BillableDuration != 35*time.Second {
		t.Fatalf("expected durations applied, got %v / %v", rec.TotalDuration, rec.BillableDuration)
	}
	if rec.RecordingURL != "http://pbx/rec/6.wav" {
		t.Fatalf("expected recording url applied, got %q", rec.RecordingURL)
	}
}
