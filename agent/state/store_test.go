package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	if _, err := store.Load(ctx, "212600000001"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("load before save: got %v, want ErrSessionNotFound", err)
	}

	sess := NewSession("212600000001", time.Now())
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "212600000001")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Address != sess.Address {
		t.Errorf("address = %q, want %q", loaded.Address, sess.Address)
	}

	if err := store.Delete(ctx, "212600000001"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "212600000001"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("load after delete: got %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreRejectsBadInput(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	if err := store.Save(ctx, nil); !errors.Is(err, ErrNilSession) {
		t.Errorf("nil session: got %v, want ErrNilSession", err)
	}
	if _, err := store.Load(ctx, "  "); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("blank address: got %v, want ErrInvalidAddress", err)
	}
	if err := store.Save(ctx, &Session{}); !errors.Is(err, ErrEmptyAddress) {
		t.Errorf("empty session address: got %v, want ErrEmptyAddress", err)
	}
}

func TestMemoryStoreEvictsIdleSessions(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	store := NewMemoryStore(WithTTL(time.Hour), WithClock(clock))
	defer store.Close()
	ctx := context.Background()

	sess := NewSession("212600000001", current)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	current = current.Add(59 * time.Minute)
	if _, err := store.Load(ctx, "212600000001"); err != nil {
		t.Fatalf("session evicted before TTL: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := store.Load(ctx, "212600000001"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("idle session past TTL: got %v, want ErrSessionNotFound", err)
	}
	if store.Len() != 0 {
		t.Errorf("expired session still counted, len = %d", store.Len())
	}
}

func TestMemoryStoreSweepRemovesExpired(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	store := NewMemoryStore(WithTTL(time.Hour), WithClock(clock))
	defer store.Close()
	ctx := context.Background()

	for _, addr := range []string{"a1", "a2", "a3"} {
		if err := store.Save(ctx, NewSession(addr, current)); err != nil {
			t.Fatalf("Save %s: %v", addr, err)
		}
	}

	current = current.Add(2 * time.Hour)
	store.sweep()

	if store.Len() != 0 {
		t.Errorf("sweep left %d sessions behind", store.Len())
	}
}

func TestMemoryStoreHandsOutCopies(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	if err := store.Save(ctx, NewSession("212600000001", time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "212600000001")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := loaded.AddItem("p1", "Sneakers", 250, 1, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	loaded.State = StateCart

	reloaded, err := store.Load(ctx, "212600000001")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reloaded.Cart) != 0 || reloaded.State != StateNew {
		t.Errorf("mutations must not reach the store before Save: %+v", reloaded)
	}

	if err := store.Save(ctx, loaded); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded.ClearCart()

	reloaded, err = store.Load(ctx, "212600000001")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reloaded.Cart) != 1 {
		t.Errorf("saved snapshot must not alias the caller's session: %+v", reloaded.Cart)
	}
}

// Run with -race: the sweeper goroutine reads stored sessions while
// callers mutate the copies Load handed them.
func TestMemoryStoreJanitorConcurrentWithMutation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(WithTTL(time.Hour), WithSweepInterval(time.Millisecond))
	defer store.Close()
	ctx := context.Background()

	if err := store.Save(ctx, NewSession("212600000001", time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		loaded, err := store.Load(ctx, "212600000001")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		loaded.Touch(time.Now())
		loaded.AppendMessage("user", "ping", time.Now())
		if err := store.Save(ctx, loaded); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	store := NewMemoryStore(WithTTL(0), WithClock(clock))
	defer store.Close()
	ctx := context.Background()

	if err := store.Save(ctx, NewSession("212600000001", current)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	current = current.Add(1000 * time.Hour)
	if _, err := store.Load(ctx, "212600000001"); err != nil {
		t.Errorf("zero TTL must disable eviction: %v", err)
	}
}
