package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

func TestChatService_StartOrGetIsSymmetric(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)
	a := mkUser(t, db, "a")
	b := mkUser(t, db, "b")
	ctx := context.Background()

	c1, err := svc.StartOrGet(ctx, a, b.ID)
	if err != nil {
		t.Fatalf("StartOrGet(a,b): %v", err)
	}
	c2, err := svc.StartOrGet(ctx, b, a.ID)
	if err != nil {
		t.Fatalf("StartOrGet(b,a): %v", err)
	}
	if c1.ID != c2.ID {
		t.Fatalf("expected same chat, got %d and %d", c1.ID, c2.ID)
	}
	if n := countRows(t, db, &domain.Chat{}, ""); n != 1 {
		t.Fatalf("expected one chat row, got %d", n)
	}
}

func TestChatService_StartOrGetErrors(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)
	a := mkUser(t, db, "a")
	ctx := context.Background()

	_, err := svc.StartOrGet(ctx, a, a.ID)
	wantKind(t, err, KindValidation)
	if _, err := svc.StartOrGet(ctx, a, 999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user err=%v", err)
	}
	if _, err := svc.StartOrGet(ctx, nil, a.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous err=%v", err)
	}
	if n := countRows(t, db, &domain.Chat{}, ""); n != 0 {
		t.Fatalf("no chat should be created, got %d", n)
	}
}

func TestChatService_FindsLegacyReverseOrderedRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)
	a := mkUser(t, db, "a")
	b := mkUser(t, db, "b")
	ctx := context.Background()

	legacy := &domain.Chat{User1ID: b.ID, User2ID: a.ID}
	if err := db.Create(legacy).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := svc.StartOrGet(ctx, a, b.ID)
	if err != nil || got.ID != legacy.ID {
		t.Fatalf("expected legacy chat %d, got %v %+v", legacy.ID, err, got)
	}
}

func TestChatService_ListAndGet(t *testing.T) {
	db := newTestDB(t)
	svc := NewChatService(db)
	a := mkUser(t, db, "a")
	b := mkUser(t, db, "b")
	c := mkUser(t, db, "c")
	ctx := context.Background()

	ab, _ := svc.StartOrGet(ctx, a, b.ID)
	if _, err := svc.StartOrGet(ctx, c, a.ID); err != nil {
		t.Fatalf("StartOrGet: %v", err)
	}

	list, err := svc.List(ctx, a)
	if err != nil || len(list) != 2 {
		t.Fatalf("List(a): %v %d", err, len(list))
	}
	list, _ = svc.List(ctx, b)
	if len(list) != 1 {
		t.Fatalf("List(b): %d", len(list))
	}

	if got, err := svc.Get(ctx, b, ab.ID); err != nil || got.ID != ab.ID {
		t.Fatalf("Get participant: %v", err)
	}
	if _, err := svc.Get(ctx, c, ab.ID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider err=%v", err)
	}
	if _, err := svc.Get(ctx, a, 999); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("missing chat err=%v", err)
	}
	if _, err := repo.GetChat(ctx, db, ab.ID); err != nil {
		t.Fatalf("GetChat: %v", err)
	}
}
