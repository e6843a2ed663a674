package repo

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-places-market/internal/domain"
)

// newRepoDB opens a fresh file-backed database with the full schema.
func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "repo_test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, name, "hash", false)
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func seedPlace(t *testing.T, db *gorm.DB, ownerID uint, title string) *domain.Place {
	t.Helper()
	p, err := CreatePlace(context.Background(), db, ownerID, PlaceFields{
		Title: title, Description: "desc", Latitude: 1, Longitude: 2, Price: 100,
	}, nil)
	if err != nil {
		t.Fatalf("seed place %s: %v", title, err)
	}
	return p
}
