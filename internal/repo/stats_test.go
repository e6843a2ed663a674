package repo

import (
	"context"
	"testing"
	"time"
)

func TestPlacesStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	n, latest, err := PlacesStats(ctx, db)
	if err != nil || n != 0 || latest != nil {
		t.Fatalf("empty PlacesStats: %d %v %v", n, latest, err)
	}

	u := seedUser(t, db, "owner")
	p := seedPlace(t, db, u.ID, "One")
	seedPlace(t, db, u.ID, "Two")

	n, first, err := PlacesStats(ctx, db)
	if err != nil || n != 2 || first == nil {
		t.Fatalf("PlacesStats: %d %v %v", n, first, err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := UpdatePlace(ctx, db, p.ID, PlaceFields{Title: "One!", Description: "d", Price: 1}); err != nil {
		t.Fatalf("UpdatePlace: %v", err)
	}
	_, second, _ := PlacesStats(ctx, db)
	if second == nil || !second.After(*first) {
		t.Fatalf("expected latest updated_at to advance: %v -> %v", first, second)
	}
}

func TestMessagesStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")
	chat, _ := CreateChat(ctx, db, a.ID, b.ID)

	if n, latest, err := MessagesStats(ctx, db, chat.ID); err != nil || n != 0 || latest != nil {
		t.Fatalf("empty MessagesStats: %d %v %v", n, latest, err)
	}
	at := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	if _, err := CreateMessage(ctx, db, chat.ID, a.ID, "hi", at); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	n, latest, err := MessagesStats(ctx, db, chat.ID)
	if err != nil || n != 1 || latest == nil || !latest.Equal(at) {
		t.Fatalf("MessagesStats: %d %v %v", n, latest, err)
	}
}
