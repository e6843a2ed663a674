// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Favorite
// model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/domain"
)

// GetFavorite fetches the (userID, placeID) bookmark or returns ErrNotFound.
func GetFavorite(ctx context.Context, db *gorm.DB, userID, placeID uint) (*domain.Favorite, error) {
	var f domain.Favorite
	err := db.WithContext(ctx).
		Where("user_id = ? AND place_id = ?", userID, placeID).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFavorite inserts a bookmark; a duplicate pair yields ErrDuplicate.
func CreateFavorite(ctx context.Context, db *gorm.DB, userID, placeID uint) (*domain.Favorite, error) {
	f := &domain.Favorite{UserID: userID, PlaceID: placeID, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Create(f).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return f, nil
}

// DeleteFavorite removes a bookmark by id.
func DeleteFavorite(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Delete(&domain.Favorite{}, id).Error
}

// DeleteFavoritesForPlace removes every bookmark of placeID.
func DeleteFavoritesForPlace(ctx context.Context, db *gorm.DB, placeID uint) (int64, error) {
	res := db.WithContext(ctx).Where("place_id = ?", placeID).Delete(&domain.Favorite{})
	return res.RowsAffected, res.Error
}

// FavoriteExists reports whether userID bookmarked placeID.
func FavoriteExists(ctx context.Context, db *gorm.DB, userID, placeID uint) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Favorite{}).
		Where("user_id = ? AND place_id = ?", userID, placeID).
		Count(&n).Error
	return n > 0, err
}

// ListFavoritePlaces returns the places userID bookmarked, in bookmark order.
func ListFavoritePlaces(ctx context.Context, db *gorm.DB, userID uint) ([]domain.Place, error) {
	var out []domain.Place
	err := db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.place_id = places.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.id ASC").
		Find(&out).Error
	return out, err
}
