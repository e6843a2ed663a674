// Chat and message HTTP handlers.
//
//   - POST /users/{id}/chat, GET /chats
//   - GET /chats/{id}/messages (ETag)
//   - POST /chats/{id}/messages (Idempotency-Key)
//   - PUT, DELETE /chats/{id}/messages/{messageId}
//
// A retried POST carrying the same Idempotency-Key returns the message stored
// by the first attempt with `Idempotency-Replayed: true`.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/http/middleware"
	"github.com/tbourn/go-places-market/internal/observability"
	"github.com/tbourn/go-places-market/internal/repo"
)

// MessageRequest is the body for sending or editing a message.
type MessageRequest struct {
	Text string `json:"text" binding:"required" example:"Is the villa still available?"`
}

// ChatMessagesResponse is a chat together with its ordered messages.
type ChatMessagesResponse struct {
	Chat     *domain.Chat     `json:"chat"`
	Messages []domain.Message `json:"messages"`
}

// StartChat godoc
// @ID          startChat
// @Summary     Open (or reuse) the chat with another user
// @Description The pair is unordered: both users get the same chat back.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      int  true  "Other user's ID"
// @Success     200  {object}  domain.Chat
// @Failure     400  {object}  handlers.ErrorResponse  "Chat with oneself"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /users/{id}/chat [post]
func (h *Handlers) StartChat(c *gin.Context) {
	otherID, valid := pathID(c, "id")
	if !valid {
		return
	}
	ch, err := h.chats.StartOrGet(c.Request.Context(), actor(c), otherID)
	if err != nil {
		failErr(c, err)
		return
	}
	observability.Record(observability.EventChatStarted)
	ok(c, http.StatusOK, ch)
}

// ListChats godoc
// @ID          listChats
// @Summary     Chats the caller takes part in
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Chat
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	out, err := h.chats.List(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     Messages of a chat, oldest first
// @Description Participants only. Supports a weak ETag via If-None-Match.
// @Tags        Messages
// @Produce     json
// @Security    BearerAuth
// @Param       id             path    int     true   "Chat ID"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ChatMessagesResponse
// @Success     304  {string}  string  "Not Modified"
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	chatID, valid := pathID(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	ch, err := h.chats.Get(ctx, actor(c), chatID)
	if err != nil {
		failErr(c, err)
		return
	}
	if h.db != nil {
		resource := "messages:" + strconv.FormatUint(uint64(chatID), 10)
		if count, newest, serr := repo.MessagesStats(ctx, h.db, chatID); serr == nil && notModified(c, resource, count, newest) {
			return
		}
	}
	msgs, err := h.messages.List(ctx, actor(c), chatID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ChatMessagesResponse{Chat: ch, Messages: msgs})
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id               path    int                      true   "Chat ID"
// @Param       Idempotency-Key  header  string                   false  "Key for safe retries"
// @Param       body             body    handlers.MessageRequest  true   "Message"
// @Success     201  {object}  domain.Message
// @Success     200  {object}  domain.Message  "Replayed"
// @Header      200  {string}  Idempotency-Replayed  "true when replayed"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /chats/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	chatID, valid := pathID(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	if id, replay := middleware.ReplayedResource(c); replay && h.db != nil {
		if m, err := repo.GetMessage(ctx, h.db, id); err == nil && m.ChatID == chatID {
			markReplayed(c)
			ok(c, http.StatusOK, m)
			return
		}
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is required")
		return
	}
	m, err := h.messages.Send(ctx, actor(c), chatID, req.Text)
	if err != nil {
		failErr(c, err)
		return
	}
	h.rememberCreate(c, m.ID, http.StatusCreated)
	observability.Record(observability.EventMessageSent)
	ok(c, http.StatusCreated, m)
}

// EditMessage godoc
// @ID          editMessage
// @Summary     Rewrite one of the caller's messages
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id         path  int                      true  "Chat ID"
// @Param       messageId  path  int                      true  "Message ID"
// @Param       body       body  handlers.MessageRequest  true  "New text"
// @Success     200  {object}  domain.Message
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Not the sender"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /chats/{id}/messages/{messageId} [put]
func (h *Handlers) EditMessage(c *gin.Context) {
	chatID, valid := pathID(c, "id")
	if !valid {
		return
	}
	messageID, valid := pathID(c, "messageId")
	if !valid {
		return
	}
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is required")
		return
	}
	m, err := h.messages.Edit(c.Request.Context(), actor(c), chatID, messageID, req.Text)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete one of the caller's messages
// @Tags        Messages
// @Security    BearerAuth
// @Param       id         path  int  true  "Chat ID"
// @Param       messageId  path  int  true  "Message ID"
// @Success     204
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /chats/{id}/messages/{messageId} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	chatID, valid := pathID(c, "id")
	if !valid {
		return
	}
	messageID, valid := pathID(c, "messageId")
	if !valid {
		return
	}
	if err := h.messages.Delete(c.Request.Context(), actor(c), chatID, messageID); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
