// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Purchase
// ledger.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/domain"
)

// CreatePurchase records that userID bought placeID. The unique index on
// (user_id, place_id) turns a concurrent duplicate into ErrDuplicate.
func CreatePurchase(ctx context.Context, db *gorm.DB, userID, placeID uint) (*domain.Purchase, error) {
	p := &domain.Purchase{
		UserID:    userID,
		PlaceID:   placeID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return p, nil
}

// PurchaseExists reports whether userID already bought placeID.
func PurchaseExists(ctx context.Context, db *gorm.DB, userID, placeID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Purchase{}).
		Where("user_id = ? AND place_id = ?", userID, placeID).
		Count(&n).Error
	return n > 0, err
}

// CountPurchasesForPlace returns how many times placeID was bought.
func CountPurchasesForPlace(ctx context.Context, db *gorm.DB, placeID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Purchase{}).Where("place_id = ?", placeID).Count(&n).Error
	return n, err
}

// CountPurchasesByUser returns how many purchases userID made.
func CountPurchasesByUser(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Purchase{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// CountPurchasesOfOwner returns how many purchases reference a place
// authored by ownerID.
func CountPurchasesOfOwner(ctx context.Context, db *gorm.DB, ownerID uint) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Purchase{}).
		Joins("JOIN places ON places.id = purchases.place_id").
		Where("places.user_id = ?", ownerID).
		Count(&n).Error
	return n, err
}

// ListPurchasesByUser returns a buyer's purchases, oldest first, with the
// purchased place loaded.
func ListPurchasesByUser(ctx context.Context, db *gorm.DB, userID uint) ([]domain.Purchase, error) {
	var out []domain.Purchase
	err := db.WithContext(ctx).
		Preload("Place").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListPurchases returns the whole ledger in id order.
func ListPurchases(ctx context.Context, db *gorm.DB) ([]domain.Purchase, error) {
	var out []domain.Purchase
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}
