package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"pbx-connector/internal/calls"
)

func seed(t *testing.T, repo *calls.MemoryRepo, recs ...calls.Record) {
	t.Helper()
	for _, r := range recs {
		if err := repo.Create(context.Background(), r); err != nil {
			t.Fatalf("seed %s: %v", r.CallID, err)
		}
	}
}

func TestCallsSummary_Aggregates(t *testing.T) {
	repo := calls.NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	seed(t, repo,
		calls.Record{CallID: "c1", Direction: calls.DirectionInbound, Status: calls.StatusCompleted, StartTime: now, TotalDuration: 60 * time.Second, BillableDuration: 50 * time.Second, AssignedUserID: "42", RecordingURL: "http://pbx/1.wav"},
		calls.Record{CallID: "c2", Direction: calls.DirectionInbound, Status: calls.StatusNoAnswer, StartTime: now},
		calls.Record{CallID: "c3", Direction: calls.DirectionOutbound, Status: calls.StatusBusy, StartTime: now, TotalDuration: 30 * time.Second, AssignedUserID: "7"},
		calls.Record{CallID: "c4", Direction: calls.DirectionOutbound, Status: "Lost Network", StartTime: now},
		calls.Record{CallID: "old", Direction: calls.DirectionInbound, Status: calls.StatusCompleted, StartTime: now.Add(-48 * time.Hour)},
	)
	svc := NewService(repo)

	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 4 || out.InboundCalls != 2 || out.OutboundCalls != 2 {
		t.Fatalf("unexpected totals: %+v", out)
	}
	if out.CompletedCalls != 1 || out.NoAnswerCalls != 1 || out.BusyCalls != 1 {
		t.Fatalf("unexpected status counts: %+v", out)
	}
	if out.OtherStatuses["Lost Network"] != 1 {
		t.Fatalf("expected raw cause counted, got %v", out.OtherStatuses)
	}
	if out.TotalDurationSeconds != 90 || out.BillableDurationSeconds != 50 || out.AverageDurationSeconds != 22 {
		t.Fatalf("unexpected durations: %+v", out)
	}
	if out.RecordedCalls != 1 || out.UnassignedCalls != 2 {
		t.Fatalf("unexpected recorded/unassigned: %+v", out)
	}
}

func TestCallsSummary_DirectionFilter(t *testing.T) {
	repo := calls.NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	seed(t, repo,
		calls.Record{CallID: "c1", Direction: calls.DirectionInbound, Status: calls.StatusCompleted, StartTime: now},
		calls.Record{CallID: "c2", Direction: calls.DirectionOutbound, Status: calls.StatusCompleted, StartTime: now},
	)
	out, err := NewService(repo).CallsSummary(context.Background(), CallsSummaryRequest{
		Range:     TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
		Direction: "outbound",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 1 || out.OutboundCalls != 1 {
		t.Fatalf("expected only outbound calls, got %+v", out)
	}
}

func TestCallsSummary_InvalidRequest(t *testing.T) {
	svc := NewService(calls.NewMemoryRepo())
	now := time.Unix(1700000000, 0).UTC()

	bad := []CallsSummaryRequest{
		{},
		{Range: TimeRange{From: now, To: now}},
		{Range: TimeRange{From: now, To: now.Add(time.Hour)}, Direction: "sideways"},
	}
	for _, req := range bad {
		if _, err := svc.CallsSummary(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}
}
