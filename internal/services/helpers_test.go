package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
	"github.com/tbourn/go-places-market/internal/storage"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "services_test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func mkUser(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, name, "x", false)
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func mkAdmin(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, name, "x", true)
	if err != nil {
		t.Fatalf("seed admin %s: %v", name, err)
	}
	return u
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }

func placeInput(title string) PlaceInput {
	return PlaceInput{Title: title, Description: "nice", Latitude: ptrF(40.6), Longitude: ptrF(22.9), Price: ptrI(1000)}
}

func mkPlace(t *testing.T, db *gorm.DB, owner *domain.User, title string) *domain.Place {
	t.Helper()
	p, err := NewPlaceService(db, nil).Create(context.Background(), owner, placeInput(title), nil)
	if err != nil {
		t.Fatalf("seed place %s: %v", title, err)
	}
	return p
}

// memImages is an in-memory ImageStore.
type memImages struct {
	mu      sync.Mutex
	files   map[string][]byte
	seq     int
	saveErr error
}

func newMemImages() *memImages { return &memImages{files: map[string][]byte{}} }

func (m *memImages) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	if !storage.AllowedFile(filename) {
		return "", storage.ErrUnsupportedType
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	name := fmt.Sprintf("img%d%s", m.seq, strings.ToLower(filepath.Ext(filename)))
	m.files[name] = data
	return name, nil
}

func (m *memImages) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == domain.DefaultAvatar {
		return nil
	}
	delete(m.files, name)
	return nil
}

func (m *memImages) has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

func (m *memImages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func upload(name string) *Upload {
	return &Upload{Filename: name, Body: strings.NewReader("image-bytes")}
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func countRows(t *testing.T, db *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

var errBoom = errors.New("boom")
