package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-places-market/internal/domain"
)

func TestReviewService_RatingBounds(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db)
	seller := mkUser(t, db, "seller")
	reviewer := mkUser(t, db, "reviewer")
	ctx := context.Background()

	for _, r := range []int{0, 6, -1} {
		_, err := svc.Leave(ctx, reviewer, seller.ID, "text", r)
		wantKind(t, err, KindValidation)
	}
	if n := countRows(t, db, &domain.Review{}, ""); n != 0 {
		t.Fatalf("rejected ratings must not write rows, got %d", n)
	}
	for _, r := range []int{1, 5} {
		rev, err := svc.Leave(ctx, reviewer, seller.ID, "text", r)
		if err != nil || rev.Rating != r {
			t.Fatalf("rating %d: %v %+v", r, err, rev)
		}
	}
	// Reviews are not unique per pair.
	if n := countRows(t, db, &domain.Review{}, "reviewer_id = ? AND seller_id = ?", reviewer.ID, seller.ID); n != 2 {
		t.Fatalf("expected 2 reviews, got %d", n)
	}
}

func TestReviewService_LeaveValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db)
	u := mkUser(t, db, "u")
	seller := mkUser(t, db, "seller")
	ctx := context.Background()

	// Nothing stops a seller from reviewing their own account.
	self, err := svc.Leave(ctx, u, u.ID, "me", 5)
	if err != nil || self.ReviewerID != u.ID || self.SellerID != u.ID {
		t.Fatalf("self review: %v %+v", err, self)
	}
	_, err = svc.Leave(ctx, u, seller.ID, "   ", 5)
	wantKind(t, err, KindValidation)
	_, err = svc.Leave(ctx, u, seller.ID, strings.Repeat("x", maxTextRunes+1), 5)
	wantKind(t, err, KindValidation)
	if _, err := svc.Leave(ctx, u, 9999, "x", 5); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown seller err=%v", err)
	}
	if _, err := svc.Leave(ctx, nil, seller.ID, "x", 5); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous err=%v", err)
	}
}

func TestReviewService_RespondOnlySeller(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db)
	seller := mkUser(t, db, "seller")
	reviewer := mkUser(t, db, "reviewer")
	stranger := mkUser(t, db, "stranger")
	ctx := context.Background()

	rev, err := svc.Leave(ctx, reviewer, seller.ID, "slow replies", 3)
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}

	for _, actor := range []*domain.User{reviewer, stranger} {
		_, err := svc.Respond(ctx, actor, rev.ID, "hijack")
		wantKind(t, err, KindForbidden)
	}

	got, err := svc.Respond(ctx, seller, rev.ID, "sorry")
	if err != nil || got.Reply == nil || *got.Reply != "sorry" {
		t.Fatalf("Respond: %v %+v", err, got)
	}
	got, err = svc.Respond(ctx, seller, rev.ID, "fixed now")
	if err != nil || *got.Reply != "fixed now" {
		t.Fatalf("reply should be overwritten: %v %+v", err, got)
	}

	_, err = svc.Respond(ctx, seller, rev.ID, "")
	wantKind(t, err, KindValidation)
	if _, err := svc.Respond(ctx, seller, 999, "x"); !errors.Is(err, ErrReviewNotFound) {
		t.Fatalf("missing review err=%v", err)
	}

	written, _ := svc.Written(ctx, reviewer)
	received, _ := svc.Received(ctx, seller)
	if len(written) != 1 || len(received) != 1 {
		t.Fatalf("written=%d received=%d", len(written), len(received))
	}
	public, err := svc.ForSeller(ctx, seller.ID)
	if err != nil || len(public) != 1 {
		t.Fatalf("ForSeller: %v %d", err, len(public))
	}
	if _, err := svc.ForSeller(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ForSeller missing err=%v", err)
	}
}

func TestComplaintService_File(t *testing.T) {
	db := newTestDB(t)
	svc := NewComplaintService(db)
	seller := mkUser(t, db, "seller")
	other := mkUser(t, db, "other")
	reporter := mkUser(t, db, "reporter")
	mine := mkPlace(t, db, seller, "Lake Villa")
	theirs := mkPlace(t, db, other, "Cabin")
	ctx := context.Background()

	c, err := svc.File(ctx, reporter, seller.ID, "  rude  ", nil)
	if err != nil || c.Text != "rude" || c.PlaceID != nil {
		t.Fatalf("File without place: %v %+v", err, c)
	}
	pid := mine.ID
	c, err = svc.File(ctx, reporter, seller.ID, "dirty", &pid)
	if err != nil || c.PlaceID == nil || *c.PlaceID != mine.ID {
		t.Fatalf("File with place: %v %+v", err, c)
	}

	wrong := theirs.ID
	_, err = svc.File(ctx, reporter, seller.ID, "x", &wrong)
	wantKind(t, err, KindValidation)
	missing := uint(999)
	if _, err := svc.File(ctx, reporter, seller.ID, "x", &missing); !errors.Is(err, ErrPlaceNotFound) {
		t.Fatalf("missing place err=%v", err)
	}
	if _, err := svc.File(ctx, reporter, 999, "x", nil); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown seller err=%v", err)
	}
	if _, err := svc.File(ctx, seller, seller.ID, "note to self", nil); err != nil {
		t.Fatalf("self complaint: %v", err)
	}

	made, _ := svc.Made(ctx, reporter)
	received, _ := svc.Received(ctx, seller)
	if len(made) != 2 || len(received) != 3 {
		t.Fatalf("made=%d received=%d", len(made), len(received))
	}
}

func TestComplaintService_RespondOnlySeller(t *testing.T) {
	db := newTestDB(t)
	svc := NewComplaintService(db)
	seller := mkUser(t, db, "seller")
	reporter := mkUser(t, db, "reporter")
	ctx := context.Background()

	c, err := svc.File(ctx, reporter, seller.ID, "late", nil)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	_, err = svc.Respond(ctx, reporter, c.ID, "self answer")
	wantKind(t, err, KindForbidden)

	got, err := svc.Respond(ctx, seller, c.ID, "on it")
	if err != nil || got.Response == nil || *got.Response != "on it" {
		t.Fatalf("Respond: %v %+v", err, got)
	}
	if _, err := svc.Respond(ctx, seller, 999, "x"); !errors.Is(err, ErrComplaintNotFound) {
		t.Fatalf("missing complaint err=%v", err)
	}
}
