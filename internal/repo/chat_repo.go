// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chat model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Chats are stored with User1ID < User2ID and a unique index on the pair.
// Lookups still search both orderings so rows written before normalization
// are found as well.
//
// Error semantics:
//   - When a chat is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A concurrent insert of the same pair returns ErrDuplicate; the caller
//     re-reads the winning row with FindChatBetween.
//
// Usage:
//
//	chat, err := repo.FindChatBetween(ctx, db, a, b)
//	if errors.Is(err, repo.ErrNotFound) {
//	    chat, err = repo.CreateChat(ctx, db, a, b)
//	}
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/domain"
)

// normalizePair orders two user ids so that the first is the smaller.
func normalizePair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// FindChatBetween returns the chat for the unordered pair {a, b}.
func FindChatBetween(ctx context.Context, db *gorm.DB, a, b uint) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)", a, b, b, a).
		Order("id ASC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateChat inserts the normalized pair {a, b}.
func CreateChat(ctx context.Context, db *gorm.DB, a, b uint) (*domain.Chat, error) {
	u1, u2 := normalizePair(a, b)
	c := &domain.Chat{
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// GetChat fetches a chat by id or returns ErrNotFound.
func GetChat(ctx context.Context, db *gorm.DB, id uint) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChatsForUser returns every chat userID takes part in, newest first.
func ListChatsForUser(ctx context.Context, db *gorm.DB, userID uint) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}
