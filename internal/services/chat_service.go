// Package services – ChatService
//
// This file implements the ChatService, which manages two-party chats. A
// chat exists at most once per unordered pair of users: StartOrGet returns
// the existing conversation, searching both orderings, and only creates one
// when none exists. The unique index on the normalized pair settles
// concurrent first contacts; the loser re-reads the winner's row.
//
// Service-level errors (e.g., ErrChatNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/authz"
	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

// ChatService provides chat-level operations: starting a conversation,
// listing a user's conversations and participant-checked lookup.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{DB: db}
}

// StartOrGet returns the chat between actor and otherID, creating it on
// first contact.
func (s *ChatService) StartOrGet(ctx context.Context, actor *domain.User, otherID uint) (c *domain.Chat, err error) {
	ctx, span := startSpan(ctx, "ChatService", "StartOrGet", actorAttr(actor), idAttr("other.id", otherID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.ID == otherID {
		return nil, validationf("you cannot start a chat with yourself")
	}
	ok, err := repo.UserExists(ctx, s.DB, otherID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}

	c, err = repo.FindChatBetween(ctx, s.DB, actor.ID, otherID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	c, err = repo.CreateChat(ctx, s.DB, actor.ID, otherID)
	if errors.Is(err, repo.ErrDuplicate) {
		// Lost the race to a concurrent first contact.
		return repo.FindChatBetween(ctx, s.DB, actor.ID, otherID)
	}
	if repo.IsForeignKeyViolation(err) {
		return nil, ErrUserNotFound
	}
	return c, err
}

// List returns the chats actor takes part in, newest first.
func (s *ChatService) List(ctx context.Context, actor *domain.User) (out []domain.Chat, err error) {
	ctx, span := startSpan(ctx, "ChatService", "List", actorAttr(actor))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return repo.ListChatsForUser(ctx, s.DB, actor.ID)
}

// Get returns chatID if actor is one of its participants.
func (s *ChatService) Get(ctx context.Context, actor *domain.User, chatID uint) (c *domain.Chat, err error) {
	ctx, span := startSpan(ctx, "ChatService", "Get", actorAttr(actor), idAttr("chat.id", chatID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return participantChat(ctx, s.DB, actor, chatID)
}

// participantChat loads chatID and checks that actor takes part in it.
func participantChat(ctx context.Context, db *gorm.DB, actor *domain.User, chatID uint) (*domain.Chat, error) {
	c, err := repo.GetChat(ctx, db, chatID)
	if err != nil {
		return nil, notFoundOr(err, ErrChatNotFound)
	}
	if !authz.IsParticipant(actor, c) {
		return nil, ErrNotParticipant
	}
	return c, nil
}
