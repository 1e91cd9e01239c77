package calls

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepo_CreateOnce(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, Record{CallID: "c1", Status: StatusRinging}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := repo.Create(ctx, Record{CallID: "c1"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := repo.Update(ctx, "missing", Update{Status: ptr(StatusBusy)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepo_ListByStartTime(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	_ = repo.Create(ctx, Record{CallID: "late", StartTime: now.Add(2 * time.Hour)})
	_ = repo.Create(ctx, Record{CallID: "b", StartTime: now.Add(time.Minute)})
	_ = repo.Create(ctx, Record{CallID: "a", StartTime: now})

	got, err := repo.List(ctx, now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 || got[0].CallID != "a" || got[1].CallID != "b" {
		t.Fatalf("unexpected list: %+v", got)
	}
}
