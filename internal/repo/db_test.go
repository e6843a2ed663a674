package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"
)

func TestDSN(t *testing.T) {
	cases := map[string]string{
		"market.db":             "market.db?_pragma=journal_mode(WAL)&",
		"file:m?mode=memory":    "file:m?mode=memory&_pragma=journal_mode(WAL)&",
		"/var/lib/market/db.db": "/var/lib/market/db.db?_pragma=",
	}
	for in, prefix := range cases {
		got := DSN(in)
		if !strings.HasPrefix(got, prefix) {
			t.Fatalf("DSN(%q) = %q; want prefix %q", in, got, prefix)
		}
		if n := strings.Count(got, "_pragma="); n != len(pragmas) {
			t.Fatalf("DSN(%q) has %d pragmas; want %d", in, n, len(pragmas))
		}
	}
}

func TestOpenSQLite_MissingDirectory(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nope", "market.db"))
	if err == nil || db != nil {
		t.Fatalf("expected error, got db=%v err=%v", db, err)
	}
}

func TestOpenSQLite_ConnectionSettings(t *testing.T) {
	db := newRepoDB(t)

	for pragma, want := range map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"foreign_keys": "1",
		"busy_timeout": "5000",
	} {
		var got string
		if err := db.Raw(fmt.Sprintf("PRAGMA %s;", pragma)).Row().Scan(&got); err != nil {
			t.Fatalf("PRAGMA %s: %v", pragma, err)
		}
		if strings.ToLower(got) != want {
			t.Fatalf("PRAGMA %s = %q; want %q", pragma, got, want)
		}
	}

	sqlDB, _ := db.DB()
	if sqlDB.Stats().MaxOpenConnections != 10 {
		t.Fatalf("max open = %d", sqlDB.Stats().MaxOpenConnections)
	}
}

func TestAutoMigrate_EnforcesForeignKeys(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	_, err := CreatePlace(ctx, db, 4242, PlaceFields{Title: "orphan"}, nil)
	if !IsForeignKeyViolation(err) {
		t.Fatalf("listing without owner: %v", err)
	}

	owner := seedUser(t, db, "owner")
	buyer := seedUser(t, db, "buyer")
	place := seedPlace(t, db, owner.ID, "Loft")
	if _, err := CreatePurchase(ctx, db, buyer.ID, place.ID); err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	// Purchases restrict deleting the listing.
	if err := db.Delete(place).Error; !IsForeignKeyViolation(err) {
		t.Fatalf("delete purchased place: %v", err)
	}
}

func TestErrorClassifiers(t *testing.T) {
	cases := []struct {
		err        error
		unique, fk bool
	}{
		{nil, false, false},
		{ErrNotFound, false, false},
		{ErrDuplicate, true, false},
		{fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true, false},
		{errors.New("constraint failed: UNIQUE constraint failed: purchases.user_id (2067)"), true, false},
		{gorm.ErrForeignKeyViolated, false, true},
		{errors.New("FOREIGN KEY constraint failed (787)"), false, true},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.unique {
			t.Fatalf("IsUniqueViolation(%v) = %v", tc.err, got)
		}
		if got := IsForeignKeyViolation(tc.err); got != tc.fk {
			t.Fatalf("IsForeignKeyViolation(%v) = %v", tc.err, got)
		}
	}
}
