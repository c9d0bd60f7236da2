package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arasli/duet-chat/internal/middleware"
	"github.com/arasli/duet-chat/internal/repository"
)

// ConversationHandler resolves 1:1 conversations and lists their members.
type ConversationHandler struct {
	Conversations *repository.ConversationRepo
}

func NewConversationHandler(r *repository.ConversationRepo) *ConversationHandler {
	return &ConversationHandler{Conversations: r}
}

type conversationResp struct {
	ConversationID string `json:"conversation_id"`
}

type memberResp struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// With atomically resolves or creates the conversation between the caller
// and the target user. Concurrent resolutions of the same pair, in either
// order, return the same id.
func (h *ConversationHandler) With(c echo.Context) error {
	self := middleware.UserID(c)
	other := c.Param("userID")
	if other == "" || other == self {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid target user"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Conversations.GetOrCreate(ctx, self, other)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve conversation failed"})
	}
	return c.JSON(http.StatusOK, conversationResp{ConversationID: id})
}

// Members lists a conversation's member rows. With ?exclude_self=1 only the
// peer is returned. Non-members get a 403.
func (h *ConversationHandler) Members(c echo.Context) error {
	self := middleware.UserID(c)
	convID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Conversations.IsMember(ctx, convID, self)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "membership check failed"})
	}
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a member of this conversation"})
	}

	exclude := ""
	if c.QueryParam("exclude_self") == "1" || c.QueryParam("exclude_self") == "true" {
		exclude = self
	}
	members, err := h.Conversations.Members(ctx, convID, exclude)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list members failed"})
	}
	out := make([]memberResp, 0, len(members))
	for _, m := range members {
		out = append(out, memberResp{UserID: m.UserID, JoinedAt: m.JoinedAt})
	}
	return c.JSON(http.StatusOK, out)
}
