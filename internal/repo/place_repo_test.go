package repo

import (
	"context"
	"errors"
	"testing"
)

func TestPlaces_CRUD(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")

	img := "abc.png"
	p, err := CreatePlace(ctx, db, owner.ID, PlaceFields{Title: "Lake", Description: "d", Latitude: 1.5, Longitude: -2.5, Price: 0}, &img)
	if err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}
	if p.ID == 0 || p.UserID != owner.ID || p.ImageFile == nil || *p.ImageFile != "abc.png" {
		t.Fatalf("unexpected place: %+v", p)
	}
	seedPlace(t, db, other.ID, "Hill")
	seedPlace(t, db, owner.ID, "Sea")

	all, err := ListPlaces(ctx, db)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListPlaces: %d %v", len(all), err)
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("expected id order: %+v", all)
		}
	}

	mine, err := ListPlacesByOwner(ctx, db, owner.ID)
	if err != nil || len(mine) != 2 || mine[0].Title != "Lake" || mine[1].Title != "Sea" {
		t.Fatalf("ListPlacesByOwner: %+v %v", mine, err)
	}

	if err := UpdatePlace(ctx, db, p.ID, PlaceFields{Title: "Lake 2", Description: "d2", Latitude: 3, Longitude: 4, Price: 9}); err != nil {
		t.Fatalf("UpdatePlace: %v", err)
	}
	got, err := GetPlace(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("GetPlace: %v", err)
	}
	if got.Title != "Lake 2" || got.Price != 9 || got.UserID != owner.ID {
		t.Fatalf("unexpected update: %+v", got)
	}
	if err := UpdatePlace(ctx, db, 9999, PlaceFields{Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := DeletePlace(ctx, db, p.ID); err != nil {
		t.Fatalf("DeletePlace: %v", err)
	}
	if err := DeletePlace(ctx, db, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletePlace_RestrictedByPurchase(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	buyer := seedUser(t, db, "buyer")
	p := seedPlace(t, db, owner.ID, "Cabin")
	if _, err := CreatePurchase(ctx, db, buyer.ID, p.ID); err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if err := DeletePlace(ctx, db, p.ID); !IsForeignKeyViolation(err) {
		t.Fatalf("expected FK violation, got %v", err)
	}
}
