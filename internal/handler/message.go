package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arasli/duet-chat/internal/middleware"
	"github.com/arasli/duet-chat/internal/model"
	"github.com/arasli/duet-chat/internal/queue"
	"github.com/arasli/duet-chat/internal/repository"
)

// MessageHandler serves the message list and the send path. Every stored
// message is additionally announced on the push exchange; a failed publish
// is logged and swallowed because subscribers reconcile through polling.
type MessageHandler struct {
	Messages      *repository.MessageRepo
	Conversations *repository.ConversationRepo
	Publisher     *queue.Publisher
}

func NewMessageHandler(m *repository.MessageRepo, conv *repository.ConversationRepo, pub *queue.Publisher) *MessageHandler {
	return &MessageHandler{Messages: m, Conversations: conv, Publisher: pub}
}

type sendMessageReq struct {
	Content string `json:"content"`
}

type messageResp struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func toMessageResp(m model.Message) messageResp {
	return messageResp{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

// List returns a conversation's messages ordered ascending by creation
// time, id as tiebreaker.
func (h *MessageHandler) List(c echo.Context) error {
	self := middleware.UserID(c)
	convID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.requireMember(ctx, convID, self); err != nil {
		return h.memberError(c, err)
	}
	msgs, err := h.Messages.ListByConversation(ctx, convID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list messages failed"})
	}
	out := make([]messageResp, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResp(m))
	}
	return c.JSON(http.StatusOK, out)
}

// Send stores a message for the authenticated sender. A sender already at
// their daily limit gets a 429 with the structured quota code; clients
// must be able to branch on the code rather than the message text.
func (h *MessageHandler) Send(c echo.Context) error {
	self := middleware.UserID(c)
	convID := c.Param("id")

	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.requireMember(ctx, convID, self); err != nil {
		return h.memberError(c, err)
	}

	msg, err := h.Messages.Insert(ctx, convID, self, content)
	if err != nil {
		if err == repository.ErrDailyLimitReached {
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error": "daily message limit reached",
				"code":  "quota_exceeded",
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send message failed"})
	}

	// best-effort push; the poll path covers lost events
	_ = h.Publisher.PublishMessageInserted(ctx, queue.MessageInsertedEvent{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt.Format(time.RFC3339Nano),
	})

	return c.JSON(http.StatusCreated, toMessageResp(msg))
}

func (h *MessageHandler) requireMember(ctx context.Context, convID, userID string) error {
	ok, err := h.Conversations.IsMember(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrForbidden
	}
	return nil
}

func (h *MessageHandler) memberError(c echo.Context, err error) error {
	if err == repository.ErrForbidden {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a member of this conversation"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "membership check failed"})
}
