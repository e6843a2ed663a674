// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/domain"
)

// CreateMessage appends a message to chatID stamped with at.
func CreateMessage(ctx context.Context, db *gorm.DB, chatID, senderID uint, text string, at time.Time) (*domain.Message, error) {
	m := &domain.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		SentAt:    at,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches a message by id.
func GetMessage(ctx context.Context, db *gorm.DB, id uint) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns messages ordered deterministically (SentAt ASC, ID ASC).
func ListMessages(ctx context.Context, db *gorm.DB, chatID uint) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sent_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// UpdateMessageText rewrites the text and timestamp of a message.
func UpdateMessageText(ctx context.Context, db *gorm.DB, id uint, text string, at time.Time) error {
	res := db.WithContext(ctx).Model(&domain.Message{}).Where("id = ?", id).Updates(map[string]any{
		"text":       text,
		"sent_at":    at,
		"updated_at": at,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessage removes a message by id.
func DeleteMessage(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Message{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
