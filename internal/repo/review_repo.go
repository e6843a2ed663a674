// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Review
// model.
//
// Reviews carry two user references (reviewer and seller). Listing helpers
// are provided for either role, newest first.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/domain"
)

// CreateReview inserts a review. The rating CHECK constraint is a backstop;
// validation belongs to the service.
func CreateReview(ctx context.Context, db *gorm.DB, reviewerID, sellerID uint, text string, rating int) (*domain.Review, error) {
	r := &domain.Review{
		ReviewerID: reviewerID,
		SellerID:   sellerID,
		Text:       text,
		Rating:     rating,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetReview fetches a review or returns ErrNotFound.
func GetReview(ctx context.Context, db *gorm.DB, id uint) (*domain.Review, error) {
	var r domain.Review
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// SetReviewReply overwrites the seller's reply.
func SetReviewReply(ctx context.Context, db *gorm.DB, id uint, reply string) error {
	res := db.WithContext(ctx).Model(&domain.Review{}).Where("id = ?", id).Update("reply", reply)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReviewsByReviewer returns reviews written by reviewerID.
func ListReviewsByReviewer(ctx context.Context, db *gorm.DB, reviewerID uint) ([]domain.Review, error) {
	var out []domain.Review
	err := db.WithContext(ctx).
		Where("reviewer_id = ?", reviewerID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ListReviewsBySeller returns reviews about sellerID.
func ListReviewsBySeller(ctx context.Context, db *gorm.DB, sellerID uint) ([]domain.Review, error) {
	var out []domain.Review
	err := db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ListReviews returns every review in id order.
func ListReviews(ctx context.Context, db *gorm.DB) ([]domain.Review, error) {
	var out []domain.Review
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

// SellerRating returns the number of reviews about sellerID and their mean
// rating (0 when there are none).
func SellerRating(ctx context.Context, db *gorm.DB, sellerID uint) (count int64, avg float64, err error) {
	var row struct {
		N   int64
		Avg *float64
	}
	err = db.WithContext(ctx).Model(&domain.Review{}).
		Select("COUNT(*) AS n, AVG(rating) AS avg").
		Where("seller_id = ?", sellerID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	if row.Avg != nil {
		avg = *row.Avg
	}
	return row.N, avg, nil
}
