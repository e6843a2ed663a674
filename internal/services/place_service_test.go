package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

func TestPlaceService_CreateValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlaceService(db, nil)
	owner := mkUser(t, db, "owner")
	ctx := context.Background()

	mutate := func(f func(*PlaceInput)) PlaceInput {
		in := placeInput("Lake Villa")
		f(&in)
		return in
	}
	cases := map[string]PlaceInput{
		"blank title":       mutate(func(in *PlaceInput) { in.Title = "  " }),
		"long title":        mutate(func(in *PlaceInput) { in.Title = strings.Repeat("t", maxTitleRunes+1) }),
		"blank description": mutate(func(in *PlaceInput) { in.Description = "" }),
		"missing latitude":  mutate(func(in *PlaceInput) { in.Latitude = nil }),
		"missing longitude": mutate(func(in *PlaceInput) { in.Longitude = nil }),
		"missing price":     mutate(func(in *PlaceInput) { in.Price = nil }),
		"latitude NaN":      mutate(func(in *PlaceInput) { in.Latitude = ptrF(math.NaN()) }),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, owner, in, nil)
			wantKind(t, err, KindValidation)
		})
	}
	if n := countRows(t, db, &domain.Place{}, ""); n != 0 {
		t.Fatalf("invalid input must not write rows, got %d", n)
	}

	// Coordinates and price are not range checked.
	accepted := map[string]PlaceInput{
		"zero price":         mutate(func(in *PlaceInput) { in.Price = ptrI(0) }),
		"negative price":     mutate(func(in *PlaceInput) { in.Price = ptrI(-5) }),
		"latitude past 90":   mutate(func(in *PlaceInput) { in.Latitude = ptrF(120) }),
		"longitude past 180": mutate(func(in *PlaceInput) { in.Longitude = ptrF(-181) }),
	}
	for name, in := range accepted {
		p, err := svc.Create(ctx, owner, in, nil)
		if err != nil {
			t.Fatalf("%s should be accepted: %v", name, err)
		}
		if p.UserID != owner.ID || p.ImageFile != nil || p.Price != *in.Price || p.Latitude != *in.Latitude {
			t.Fatalf("%s: unexpected place %+v", name, p)
		}
	}

	if _, err := svc.Create(ctx, nil, placeInput("x"), nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous create err=%v", err)
	}
}

func TestPlaceService_CreateWithImage(t *testing.T) {
	db := newTestDB(t)
	imgs := newMemImages()
	svc := NewPlaceService(db, imgs)
	owner := mkUser(t, db, "owner")
	ctx := context.Background()

	p, err := svc.Create(ctx, owner, placeInput("Cabin"), upload("cabin.JPG"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ImageFile == nil || !imgs.has(*p.ImageFile) {
		t.Fatalf("expected stored image, got %+v", p.ImageFile)
	}

	_, err = svc.Create(ctx, owner, placeInput("Cabin 2"), upload("cabin.bmp"))
	wantKind(t, err, KindValidation)
	if n := countRows(t, db, &domain.Place{}, ""); n != 1 {
		t.Fatalf("rejected image must not create a place, got %d rows", n)
	}

	// Insert fails on a dangling owner; the stored image is cleaned up.
	ghost := &domain.User{ID: 4242}
	if _, err := svc.Create(ctx, ghost, placeInput("Ghost"), upload("g.png")); err == nil {
		t.Fatalf("expected failure for unknown owner")
	}
	if imgs.count() != 1 {
		t.Fatalf("orphan image left behind, files=%d", imgs.count())
	}
}

func TestPlaceService_Search(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlaceService(db, nil)
	owner := mkUser(t, db, "owner")
	ctx := context.Background()

	lake := mkPlace(t, db, owner, "Lake Villa")
	rustic := mkPlace(t, db, owner, "villa rustic")
	mkPlace(t, db, owner, "Cabin")

	got, err := svc.Search(ctx, "Villa")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 || got[0].ID != lake.ID || got[1].ID != rustic.ID {
		t.Fatalf("unexpected results: %+v", got)
	}

	got, err = svc.Search(ctx, "")
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("empty query should return an empty list, got %+v %v", got, err)
	}
	// Whitespace is matched literally: only titles containing a space.
	got, _ = svc.Search(ctx, " ")
	if len(got) != 2 || got[0].ID != lake.ID || got[1].ID != rustic.ID {
		t.Fatalf("space query: %+v", got)
	}
	got, _ = svc.Search(ctx, "   ")
	if len(got) != 0 {
		t.Fatalf("no title has three spaces, got %+v", got)
	}

	got, _ = svc.Search(ctx, "LAKE")
	if len(got) != 1 || got[0].ID != lake.ID {
		t.Fatalf("case-insensitive match failed: %+v", got)
	}
	got, _ = svc.Search(ctx, "nice")
	if len(got) != 0 {
		t.Fatalf("search must only match titles, got %+v", got)
	}
}

func TestPlaceService_Detail(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlaceService(db, nil)
	owner := mkUser(t, db, "owner")
	buyer := mkUser(t, db, "buyer")
	p := mkPlace(t, db, owner, "Lake Villa")
	ctx := context.Background()

	if _, err := NewPurchaseService(db).Buy(ctx, buyer, p.ID); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := NewFavoriteService(db).Toggle(ctx, buyer, p.ID); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if _, err := NewReviewService(db).Leave(ctx, buyer, owner.ID, "great host", 5); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	d, err := svc.Detail(ctx, buyer, p.ID)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if !d.Purchased || !d.Favorited || d.Owner.ID != owner.ID || len(d.Reviews) != 1 {
		t.Fatalf("unexpected detail: %+v", d)
	}

	anon, err := svc.Detail(ctx, nil, p.ID)
	if err != nil {
		t.Fatalf("anonymous Detail: %v", err)
	}
	if anon.Purchased || anon.Favorited {
		t.Fatalf("anonymous detail must not carry flags: %+v", anon)
	}

	if _, err := svc.Detail(ctx, nil, 999); !errors.Is(err, ErrPlaceNotFound) {
		t.Fatalf("missing place err=%v", err)
	}
}

func TestPlaceService_UpdateAuthorization(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlaceService(db, nil)
	owner := mkUser(t, db, "owner")
	other := mkUser(t, db, "other")
	admin := mkAdmin(t, db, "admin")
	p := mkPlace(t, db, owner, "Lake Villa")
	ctx := context.Background()

	_, err := svc.Update(ctx, other, p.ID, placeInput("Stolen"))
	wantKind(t, err, KindForbidden)

	up, err := svc.Update(ctx, owner, p.ID, placeInput("Lake Villa II"))
	if err != nil || up.Title != "Lake Villa II" || up.UserID != owner.ID {
		t.Fatalf("owner update: %v %+v", err, up)
	}
	up, err = svc.Update(ctx, admin, p.ID, placeInput("Moderated"))
	if err != nil || up.Title != "Moderated" || up.UserID != owner.ID {
		t.Fatalf("admin update: %v %+v", err, up)
	}

	_, err = svc.Update(ctx, owner, p.ID, PlaceInput{Title: "x"})
	wantKind(t, err, KindValidation)
	if _, err := svc.Update(ctx, owner, 999, placeInput("x")); !errors.Is(err, ErrPlaceNotFound) {
		t.Fatalf("missing place err=%v", err)
	}

	mine, err := svc.ListByOwner(ctx, owner)
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListByOwner: %v %d", err, len(mine))
	}
	theirs, _ := svc.ListByOwner(ctx, other)
	if len(theirs) != 0 {
		t.Fatalf("other owns nothing, got %d", len(theirs))
	}
}

func TestPlaceService_DeleteRefusedWithPurchases(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlaceService(db, nil)
	owner := mkUser(t, db, "owner")
	buyer := mkUser(t, db, "buyer")
	p := mkPlace(t, db, owner, "Lake Villa")
	ctx := context.Background()

	if _, err := NewPurchaseService(db).Buy(ctx, buyer, p.ID); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	err := svc.Delete(ctx, owner, p.ID)
	if !errors.Is(err, ErrPlaceHasPurchases) {
		t.Fatalf("Delete err=%v; want ErrPlaceHasPurchases", err)
	}
	if _, err := repo.GetPlace(ctx, db, p.ID); err != nil {
		t.Fatalf("place must remain: %v", err)
	}
	if n := countRows(t, db, &domain.Purchase{}, "place_id = ?", p.ID); n != 1 {
		t.Fatalf("purchase must remain, got %d", n)
	}
}

func TestPlaceService_DeleteCleansUp(t *testing.T) {
	db := newTestDB(t)
	imgs := newMemImages()
	svc := NewPlaceService(db, imgs)
	owner := mkUser(t, db, "owner")
	fan := mkUser(t, db, "fan")
	ctx := context.Background()

	p, err := svc.Create(ctx, owner, placeInput("Lake Villa"), upload("v.gif"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := NewFavoriteService(db).Toggle(ctx, fan, p.ID); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	pid := p.ID
	c, err := NewComplaintService(db).File(ctx, fan, owner.ID, "leaky roof", &pid)
	if err != nil {
		t.Fatalf("File: %v", err)
	}

	err = svc.Delete(ctx, fan, p.ID)
	wantKind(t, err, KindForbidden)

	if err := svc.Delete(ctx, owner, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetPlace(ctx, db, p.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("place should be gone: %v", err)
	}
	if n := countRows(t, db, &domain.Favorite{}, ""); n != 0 {
		t.Fatalf("favorites should be removed, got %d", n)
	}
	if _, err := repo.GetComplaint(ctx, db, c.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("complaint about the place should be removed: %v", err)
	}
	if imgs.count() != 0 {
		t.Fatalf("image should be removed after delete")
	}
	if err := svc.Delete(ctx, owner, p.ID); !errors.Is(err, ErrPlaceNotFound) {
		t.Fatalf("second delete err=%v", err)
	}
}
