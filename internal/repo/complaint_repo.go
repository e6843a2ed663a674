// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Complaint
// model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/domain"
)

// CreateComplaint inserts a complaint, optionally linked to placeID.
func CreateComplaint(ctx context.Context, db *gorm.DB, reporterID, sellerID uint, text string, placeID *uint) (*domain.Complaint, error) {
	c := &domain.Complaint{
		ReporterID: reporterID,
		SellerID:   sellerID,
		Text:       text,
		PlaceID:    placeID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetComplaint fetches a complaint or returns ErrNotFound.
func GetComplaint(ctx context.Context, db *gorm.DB, id uint) (*domain.Complaint, error) {
	var c domain.Complaint
	if err := db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// SetComplaintResponse overwrites the seller's response.
func SetComplaintResponse(ctx context.Context, db *gorm.DB, id uint, response string) error {
	res := db.WithContext(ctx).Model(&domain.Complaint{}).Where("id = ?", id).Update("response", response)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteComplaintsForPlace removes every complaint filed about placeID.
func DeleteComplaintsForPlace(ctx context.Context, db *gorm.DB, placeID uint) (int64, error) {
	res := db.WithContext(ctx).Where("place_id = ?", placeID).Delete(&domain.Complaint{})
	return res.RowsAffected, res.Error
}

// ListComplaintsByReporter returns complaints filed by reporterID, newest first.
func ListComplaintsByReporter(ctx context.Context, db *gorm.DB, reporterID uint) ([]domain.Complaint, error) {
	var out []domain.Complaint
	err := db.WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ListComplaintsBySeller returns complaints about sellerID, newest first.
func ListComplaintsBySeller(ctx context.Context, db *gorm.DB, sellerID uint) ([]domain.Complaint, error) {
	var out []domain.Complaint
	err := db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ListComplaints returns every complaint in id order.
func ListComplaints(ctx context.Context, db *gorm.DB) ([]domain.Complaint, error) {
	var out []domain.Complaint
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}
