package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil, 4)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Username != "alice" || u.IsAdmin || u.Avatar != domain.DefaultAvatar {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == "s3cret" || u.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}

	got, err := svc.Authenticate(ctx, "alice", "s3cret")
	if err != nil || got.ID != u.ID {
		t.Fatalf("Authenticate: %v %+v", err, got)
	}
	for _, tc := range []struct{ user, pw string }{
		{"alice", "wrong"},
		{"nobody", "s3cret"},
		{"", "s3cret"},
		{"alice", ""},
		{" alice", "s3cret"},
		{"Alice", "s3cret"},
	} {
		if _, err := svc.Authenticate(ctx, tc.user, tc.pw); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Authenticate(%q,%q) err=%v; want ErrInvalidCredentials", tc.user, tc.pw, err)
		}
	}
}

func TestUserService_RegisterDuplicateIsConflict(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil, 4)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, "alice", "pw2")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("second register err=%v; want ErrUsernameTaken", err)
	}
	wantKind(t, err, KindConflict)
	if n := countRows(t, db, &domain.User{}, "username = ?", "alice"); n != 1 {
		t.Fatalf("expected exactly one alice, got %d", n)
	}
	// Usernames are not trimmed, so a padded name is a different user.
	if u, err := svc.Register(ctx, " alice ", "pw3"); err != nil || u.Username != " alice " {
		t.Fatalf("padded username: %v %+v", err, u)
	}

	// Usernames are case-sensitive.
	if _, err := svc.Register(ctx, "Alice", "pw"); err != nil {
		t.Fatalf("case-distinct username should register: %v", err)
	}
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc := NewUserService(newTestDB(t), nil, 4)
	ctx := context.Background()

	cases := []struct{ name, user, pw string }{
		{"blank username", "   ", "pw"},
		{"long username", strings.Repeat("u", maxUsernameRunes+1), "pw"},
		{"blank password", "bob", ""},
		{"password over 72 bytes", "bob", strings.Repeat("p", 73)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.user, tc.pw)
			wantKind(t, err, KindValidation)
		})
	}
}

func TestUserService_ProfileAggregatesRating(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil, 4)
	reviews := NewReviewService(db)
	ctx := context.Background()

	seller := mkUser(t, db, "seller")
	a := mkUser(t, db, "a")
	b := mkUser(t, db, "b")

	p, err := svc.Profile(ctx, seller.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.ReviewCount != 0 || p.AverageRating != 0 {
		t.Fatalf("expected empty rating, got %+v", p)
	}

	if _, err := reviews.Leave(ctx, a, seller.ID, "good", 5); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if _, err := reviews.Leave(ctx, b, seller.ID, "ok", 2); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	p, err = svc.Profile(ctx, seller.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.ReviewCount != 2 || p.AverageRating != 3.5 {
		t.Fatalf("unexpected rating: %+v", p)
	}

	if _, err := svc.Profile(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user err=%v", err)
	}
}

func TestUserService_UpdateProfileReplacesAvatar(t *testing.T) {
	db := newTestDB(t)
	imgs := newMemImages()
	svc := NewUserService(db, imgs, 4)
	ctx := context.Background()
	u := mkUser(t, db, "alice")

	got, err := svc.UpdateProfile(ctx, u, "  hello  ", upload("me.png"))
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Bio != "hello" || got.Avatar == domain.DefaultAvatar || !imgs.has(got.Avatar) {
		t.Fatalf("unexpected profile after first update: %+v", got)
	}
	first := got.Avatar

	got, err = svc.UpdateProfile(ctx, u, "bye", upload("me2.jpg"))
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if imgs.has(first) {
		t.Fatalf("previous avatar %q should have been removed", first)
	}
	if !imgs.has(got.Avatar) || imgs.count() != 1 {
		t.Fatalf("expected only the new avatar to remain, files=%d", imgs.count())
	}

	// Bio-only update keeps the avatar.
	got, err = svc.UpdateProfile(ctx, u, "again", nil)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if !imgs.has(got.Avatar) || got.Bio != "again" {
		t.Fatalf("bio-only update changed avatar: %+v", got)
	}
}

func TestUserService_UpdateProfileRejectsBadImage(t *testing.T) {
	db := newTestDB(t)
	imgs := newMemImages()
	svc := NewUserService(db, imgs, 4)
	ctx := context.Background()
	u := mkUser(t, db, "alice")

	_, err := svc.UpdateProfile(ctx, u, "bio", upload("evil.exe"))
	wantKind(t, err, KindValidation)

	cur, _ := repo.GetUser(ctx, db, u.ID)
	if cur.Avatar != domain.DefaultAvatar || cur.Bio != "" {
		t.Fatalf("rejected upload must not change the profile: %+v", cur)
	}

	// Storage failures that are not rejections stay internal.
	imgs.saveErr = errBoom
	_, err = svc.UpdateProfile(ctx, u, "bio", upload("ok.png"))
	if !errors.Is(err, errBoom) || KindOf(err) != KindInternal {
		t.Fatalf("err=%v; want internal boom", err)
	}

	if _, err := svc.UpdateProfile(ctx, nil, "bio", nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("nil actor err=%v", err)
	}
}

func TestUserService_EnsureAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil, 4)
	ctx := context.Background()

	a, err := svc.EnsureAdmin(ctx, "root", "pw")
	if err != nil || !a.IsAdmin {
		t.Fatalf("EnsureAdmin create: %v %+v", err, a)
	}
	again, err := svc.EnsureAdmin(ctx, "root", "pw2")
	if err != nil || again.ID != a.ID {
		t.Fatalf("EnsureAdmin rerun: %v %+v", err, again)
	}
	if _, err := svc.Authenticate(ctx, "root", "pw2"); err != nil {
		t.Fatalf("password should be reset on rerun: %v", err)
	}

	plain := mkUser(t, db, "carol")
	promoted, err := svc.EnsureAdmin(ctx, "carol", "pw")
	if err != nil || promoted.ID != plain.ID || !promoted.IsAdmin {
		t.Fatalf("EnsureAdmin promote: %v %+v", err, promoted)
	}
	if n := countRows(t, db, &domain.User{}, ""); n != 2 {
		t.Fatalf("expected 2 users, got %d", n)
	}

	_, err = svc.EnsureAdmin(ctx, "", "pw")
	wantKind(t, err, KindValidation)
}
