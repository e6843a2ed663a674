// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Place model.
//
// Places are listed in primary-key order, which is also insertion order.
// Title matching for search happens in the service layer because SQLite's
// LOWER() only folds ASCII.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/domain"
)

// PlaceFields is the mutable part of a listing.
type PlaceFields struct {
	Title       string
	Description string
	Latitude    float64
	Longitude   float64
	Price       int64
}

// CreatePlace inserts a listing owned by ownerID.
func CreatePlace(ctx context.Context, db *gorm.DB, ownerID uint, f PlaceFields, imageFile *string) (*domain.Place, error) {
	now := time.Now().UTC()
	p := &domain.Place{
		Title:       f.Title,
		Description: f.Description,
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		Price:       f.Price,
		ImageFile:   imageFile,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetPlace fetches a listing or returns ErrNotFound.
func GetPlace(ctx context.Context, db *gorm.DB, id uint) (*domain.Place, error) {
	var p domain.Place
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlaces returns every listing in id order.
func ListPlaces(ctx context.Context, db *gorm.DB) ([]domain.Place, error) {
	var out []domain.Place
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

// ListPlacesByOwner returns the listings authored by ownerID in id order.
func ListPlacesByOwner(ctx context.Context, db *gorm.DB, ownerID uint) ([]domain.Place, error) {
	var out []domain.Place
	err := db.WithContext(ctx).Where("user_id = ?", ownerID).Order("id ASC").Find(&out).Error
	return out, err
}

// UpdatePlace rewrites the mutable fields. The owner column is never touched.
func UpdatePlace(ctx context.Context, db *gorm.DB, id uint, f PlaceFields) error {
	res := db.WithContext(ctx).Model(&domain.Place{}).Where("id = ?", id).Updates(map[string]any{
		"title":       f.Title,
		"description": f.Description,
		"latitude":    f.Latitude,
		"longitude":   f.Longitude,
		"price":       f.Price,
		"updated_at":  time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePlace removes a listing row. Purchases referencing it make the
// delete fail with a foreign key violation.
func DeletePlace(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Place{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
