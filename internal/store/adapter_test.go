package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func newTestAdapter() *Adapter {
	return NewAdapter(NewMemoryStore(), zerolog.Nop())
}

func TestAdapter_PutAndFindOne(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter()

	rec := Record{ID: "user_u1", Attributes: map[string]any{AttrType: KindUser, AttrUsername: "alice"}}
	if err := a.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, found, err := a.FindOne(ctx, Predicate{AttrUsername: "alice"})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if !found || got.ID != "user_u1" {
		t.Fatalf("FindOne = (%+v, %v)", got, found)
	}

	_, found, err = a.FindOne(ctx, Predicate{AttrUsername: "nobody"})
	if err != nil || found {
		t.Fatalf("absent FindOne = found %v, err %v", found, err)
	}
}

func TestAdapter_FindOneReturnsFirstOfMany(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter()

	_ = a.Put(ctx, Record{ID: "b", Attributes: map[string]any{AttrType: KindUser}})
	_ = a.Put(ctx, Record{ID: "a", Attributes: map[string]any{AttrType: KindUser}})

	got, found, err := a.FindOne(ctx, Predicate{AttrType: KindUser})
	if err != nil || !found {
		t.Fatalf("FindOne: found %v, err %v", found, err)
	}
	if got.ID != "a" {
		t.Fatalf("FindOne = %q, want deterministic first match", got.ID)
	}
}

func TestAdapter_DeleteWhere(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter()

	_ = a.Put(ctx, Record{ID: "1", Attributes: map[string]any{AttrType: KindAuthSession, AttrUserID: "u1"}})
	_ = a.Put(ctx, Record{ID: "2", Attributes: map[string]any{AttrType: KindAuthSession, AttrUserID: "u1"}})
	_ = a.Put(ctx, Record{ID: "3", Attributes: map[string]any{AttrType: KindAuthSession, AttrUserID: "u2"}})

	n, err := a.DeleteWhere(ctx, Predicate{AttrType: KindAuthSession, AttrUserID: "u1"})
	if err != nil {
		t.Fatalf("DeleteWhere: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted = %d, want 2", n)
	}

	// Deleting again matches nothing and is not an error.
	n, err = a.DeleteWhere(ctx, Predicate{AttrType: KindAuthSession, AttrUserID: "u1"})
	if err != nil || n != 0 {
		t.Fatalf("second DeleteWhere = (%d, %v)", n, err)
	}

	remaining, _ := a.FindAll(ctx, Predicate{AttrType: KindAuthSession})
	if len(remaining) != 1 || remaining[0].ID != "3" {
		t.Fatalf("remaining = %+v", remaining)
	}
}
