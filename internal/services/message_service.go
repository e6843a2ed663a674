// Package services – MessageService
//
// This file implements MessageService, which owns the lifecycle of chat
// messages: listing, sending, editing and deleting. Only participants may
// read or write a chat, and only the sender may edit or delete a message.
// A message addressed through the wrong chat is reported as not found.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include chat, message and actor identifiers.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/authz"
	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

// MessageService coordinates message persistence within chats.
type MessageService struct {
	DB *gorm.DB

	// MaxRunes caps message length; zero means the package default.
	MaxRunes int

	// now is overridable in tests.
	now func() time.Time
}

// NewMessageService constructs a MessageService.
func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{DB: db, MaxRunes: maxTextRunes}
}

func (s *MessageService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *MessageService) cleanText(text string) (string, error) {
	text, err := cleanText("text", text)
	if err != nil {
		return "", err
	}
	if s.MaxRunes > 0 && len([]rune(text)) > s.MaxRunes {
		return "", validationf("text must be at most %d characters", s.MaxRunes)
	}
	return text, nil
}

// List returns the messages of chatID, oldest first.
func (s *MessageService) List(ctx context.Context, actor *domain.User, chatID uint) (out []domain.Message, err error) {
	ctx, span := startSpan(ctx, "MessageService", "List", actorAttr(actor), idAttr("chat.id", chatID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := participantChat(ctx, s.DB, actor, chatID); err != nil {
		return nil, err
	}
	return repo.ListMessages(ctx, s.DB, chatID)
}

// Send appends a message from sender to chatID.
func (s *MessageService) Send(ctx context.Context, sender *domain.User, chatID uint, text string) (m *domain.Message, err error) {
	ctx, span := startSpan(ctx, "MessageService", "Send", actorAttr(sender), idAttr("chat.id", chatID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(sender); err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := participantChat(ctx, tx, sender, chatID); err != nil {
			return err
		}
		clean, err := s.cleanText(text)
		if err != nil {
			return err
		}
		m, err = repo.CreateMessage(ctx, tx, chatID, sender.ID, clean, s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(idAttr("message.id", m.ID))
	return m, nil
}

// Edit rewrites the text of messageID and stamps it with the current time.
func (s *MessageService) Edit(ctx context.Context, actor *domain.User, chatID, messageID uint, text string) (m *domain.Message, err error) {
	ctx, span := startSpan(ctx, "MessageService", "Edit", actorAttr(actor), idAttr("chat.id", chatID), idAttr("message.id", messageID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownMessage(ctx, tx, actor, chatID, messageID); err != nil {
			return err
		}
		clean, err := s.cleanText(text)
		if err != nil {
			return err
		}
		if err := repo.UpdateMessageText(ctx, tx, messageID, clean, s.clock()); err != nil {
			return notFoundOr(err, ErrMessageNotFound)
		}
		m, err = repo.GetMessage(ctx, tx, messageID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes messageID.
func (s *MessageService) Delete(ctx context.Context, actor *domain.User, chatID, messageID uint) (err error) {
	ctx, span := startSpan(ctx, "MessageService", "Delete", actorAttr(actor), idAttr("chat.id", chatID), idAttr("message.id", messageID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownMessage(ctx, tx, actor, chatID, messageID); err != nil {
			return err
		}
		return notFoundOr(repo.DeleteMessage(ctx, tx, messageID), ErrMessageNotFound)
	})
}

// ownMessage loads messageID, requiring that it lives in chatID and that
// actor sent it.
func (s *MessageService) ownMessage(ctx context.Context, tx *gorm.DB, actor *domain.User, chatID, messageID uint) (*domain.Message, error) {
	if _, err := repo.GetChat(ctx, tx, chatID); err != nil {
		return nil, notFoundOr(err, ErrChatNotFound)
	}
	msg, err := repo.GetMessage(ctx, tx, messageID)
	if err != nil {
		return nil, notFoundOr(err, ErrMessageNotFound)
	}
	if msg.ChatID != chatID {
		return nil, ErrMessageNotFound
	}
	if !authz.CanMutateMessage(actor, msg) {
		return nil, forbidden("only the sender can change this message")
	}
	return msg, nil
}
