package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arasli/duet-chat/internal/middleware"
	"github.com/arasli/duet-chat/internal/repository"
)

// QuotaHandler reports the caller's daily message usage. The counter is
// read-only from here; it is incremented by the message-insert transaction.
type QuotaHandler struct {
	Quota *repository.QuotaRepo
}

func NewQuotaHandler(q *repository.QuotaRepo) *QuotaHandler { return &QuotaHandler{Quota: q} }

type quotaResp struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// Get returns today's usage for the authenticated user (UTC day).
func (h *QuotaHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	used, limit, err := h.Quota.Usage(ctx, middleware.UserID(c))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "quota lookup failed"})
	}
	return c.JSON(http.StatusOK, quotaResp{Used: used, Limit: limit})
}
