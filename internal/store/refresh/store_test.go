package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/mcgate/internal/scope"
)

type factory func(t *testing.T) Store

func backends() map[string]factory {
	return map[string]factory{
		"memory": func(t *testing.T) Store { return NewMemoryStore(24 * time.Hour) },
		"redis": func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			c := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = c.Close() })
			return NewRedisStore(c, "test:", 24*time.Hour)
		},
	}
}

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func record(id, family string) Record {
	return Record{
		ID:        id,
		ClientID:  "marketing_cloud_app_1",
		FamilyID:  family,
		Scopes:    scope.New("contacts:read", "contacts:write"),
		IssuedAt:  t0,
		ExpiresAt: t0.Add(24 * time.Hour),
	}
}

func successor(prev Record, id string) Record {
	next := record(id, prev.FamilyID)
	next.ParentID = prev.ID
	next.Scopes = prev.Scopes
	return next
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) { fn(t, mk(t)) })
	}
}

func TestSaveGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		rec := record("h1", "fam-1")
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := s.Get(ctx, "h1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.ClientID != rec.ClientID || got.FamilyID != "fam-1" || got.Used || got.Revoked {
			t.Fatalf("got %+v", got)
		}
		if !got.Scopes.Equal(rec.Scopes) || !got.ExpiresAt.Equal(rec.ExpiresAt) {
			t.Fatalf("got %+v", got)
		}
		if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestRotateMarksUsedAndStoresSuccessor(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		old := record("h1", "fam-1")
		_ = s.Save(ctx, old)

		next := successor(old, "h2")
		if err := s.Rotate(ctx, Rotation{OldID: "h1", Next: next, Now: t0.Add(time.Minute), RevokeFamilyOnReuse: true}); err != nil {
			t.Fatalf("Rotate: %v", err)
		}
		prev, _ := s.Get(ctx, "h1")
		if !prev.Used {
			t.Fatal("old record not marked used")
		}
		got, err := s.Get(ctx, "h2")
		if err != nil || got.ParentID != "h1" || got.Used {
			t.Fatalf("successor = %+v, %v", got, err)
		}
	})
}

func TestReuseRevokesFamily(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		old := record("h1", "fam-1")
		_ = s.Save(ctx, old)
		now := t0.Add(time.Minute)

		n1 := successor(old, "h2")
		if err := s.Rotate(ctx, Rotation{OldID: "h1", Next: n1, Now: now, RevokeFamilyOnReuse: true}); err != nil {
			t.Fatal(err)
		}
		err := s.Rotate(ctx, Rotation{OldID: "h1", Next: successor(old, "h3"), Now: now, RevokeFamilyOnReuse: true})
		if !errors.Is(err, ErrReused) {
			t.Fatalf("replay err = %v", err)
		}
		// el sucesor legítimo también queda inutilizable
		err = s.Rotate(ctx, Rotation{OldID: "h2", Next: successor(n1, "h4"), Now: now, RevokeFamilyOnReuse: true})
		if !errors.Is(err, ErrRevoked) {
			t.Fatalf("successor err = %v", err)
		}
		got, _ := s.Get(ctx, "h2")
		if !got.Revoked {
			t.Fatal("family marker not visible on Get")
		}
		if _, err := s.Get(ctx, "h3"); !errors.Is(err, ErrNotFound) {
			t.Fatal("replayed rotation must not store a successor")
		}
	})
}

func TestReuseWithoutFamilyRevocation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		old := record("h1", "fam-1")
		_ = s.Save(ctx, old)
		n1 := successor(old, "h2")
		_ = s.Rotate(ctx, Rotation{OldID: "h1", Next: n1, Now: t0})
		if err := s.Rotate(ctx, Rotation{OldID: "h1", Next: successor(old, "h3"), Now: t0}); !errors.Is(err, ErrReused) {
			t.Fatalf("err = %v", err)
		}
		if err := s.Rotate(ctx, Rotation{OldID: "h2", Next: successor(n1, "h4"), Now: t0}); err != nil {
			t.Fatalf("successor should stay valid: %v", err)
		}
	})
}

func TestRotateExpiredAndUnknown(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		old := record("h1", "fam-1")
		_ = s.Save(ctx, old)
		err := s.Rotate(ctx, Rotation{OldID: "h1", Next: successor(old, "h2"), Now: old.ExpiresAt})
		if !errors.Is(err, ErrExpired) {
			t.Fatalf("err = %v", err)
		}
		err = s.Rotate(ctx, Rotation{OldID: "ghost", Next: successor(old, "h3"), Now: t0})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
		// familia que no coincide
		err = s.Rotate(ctx, Rotation{OldID: "h1", Next: record("h4", "fam-other"), Now: t0})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestConcurrentRotateHasOneWinner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		old := record("h1", "fam-1")
		_ = s.Save(ctx, old)

		const n = 16
		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  = make([]error, n)
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				errs[i] = s.Rotate(ctx, Rotation{
					OldID:               "h1",
					Next:                successor(old, fmt.Sprintf("n%d", i)),
					Now:                 t0.Add(time.Second),
					RevokeFamilyOnReuse: true,
				})
			}(i)
		}
		close(start)
		wg.Wait()

		wins := 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrReused):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("winners = %d, want exactly 1", wins)
		}
	})
}

func TestRevokeFamilyAndClient(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := record("a1", "fam-a")
		b := record("b1", "fam-b")
		_ = s.Save(ctx, a)
		_ = s.Save(ctx, b)

		if err := s.RevokeFamily(ctx, "fam-a"); err != nil {
			t.Fatal(err)
		}
		if err := s.RevokeFamily(ctx, "fam-a"); err != nil {
			t.Fatalf("revoke must be idempotent: %v", err)
		}
		if err := s.Rotate(ctx, Rotation{OldID: "a1", Next: successor(a, "a2"), Now: t0}); !errors.Is(err, ErrRevoked) {
			t.Fatalf("err = %v", err)
		}

		n, err := s.RevokeClient(ctx, "marketing_cloud_app_1")
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Fatalf("revoked families = %d, want 2", n)
		}
		if got, _ := s.Get(ctx, "b1"); !got.Revoked {
			t.Fatal("client-wide revoke missed fam-b")
		}
		if n, _ := s.RevokeClient(ctx, "nobody"); n != 0 {
			t.Fatalf("n = %d", n)
		}
	})
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	c := rdb.NewClient(&rdb.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer c.Close()
	s := NewRedisStore(c, "test:", time.Hour)
	mr.Close()

	ctx := context.Background()
	if err := s.Save(ctx, record("x", "f")); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Save err = %v", err)
	}
	if err := s.Rotate(ctx, Rotation{OldID: "x", Next: record("y", "f"), Now: t0}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Rotate err = %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Ping err = %v", err)
	}
}
