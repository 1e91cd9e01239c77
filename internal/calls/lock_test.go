package calls

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestKeyedLocker_SerializesSameKey(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "call-1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxSeen)
	}
	if len(l.locks) != 0 {
		t.Fatalf("expected lock table to be empty, got %d entries", len(l.locks))
	}
}

func TestKeyedLocker_DifferentKeysIndependent(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	ctxB, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctxB, "b")
	if err != nil {
		t.Fatalf("expected b to lock while a is held: %v", err)
	}
	unlockB()
}

func TestKeyedLocker_HonorsContext(t *testing.T) {
	l := NewKeyedLocker()
	unlock, _ := l.Lock(context.Background(), "c")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "c"); err == nil {
		t.Fatalf("expected context error while lock is held")
	}
}
