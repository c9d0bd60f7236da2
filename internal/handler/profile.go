package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arasli/duet-chat/internal/middleware"
	"github.com/arasli/duet-chat/internal/model"
	"github.com/arasli/duet-chat/internal/repository"
)

// ProfileHandler serves the profile list, single-profile lookup and the
// presence heartbeat.
type ProfileHandler struct {
	Profiles *repository.ProfileRepo
}

func NewProfileHandler(p *repository.ProfileRepo) *ProfileHandler {
	return &ProfileHandler{Profiles: p}
}

type profileResp struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	DisplayName       *string    `json:"display_name"`
	AvatarURL         *string    `json:"avatar_url"`
	DailyMessageLimit int        `json:"daily_message_limit"`
	LastSeenAt        *time.Time `json:"last_seen_at"`
}

func toProfileResp(p model.Profile) profileResp {
	return profileResp{
		ID:                p.ID,
		Username:          p.Username,
		DisplayName:       p.DisplayName,
		AvatarURL:         p.AvatarURL,
		DailyMessageLimit: p.DailyMessageLimit,
		LastSeenAt:        p.LastSeenAt,
	}
}

// List returns every profile ordered by username. Password hashes never
// leave the repository layer response types.
func (h *ProfileHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profiles, err := h.Profiles.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list profiles failed"})
	}
	out := make([]profileResp, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toProfileResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one profile by id.
func (h *ProfileHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.GetByID(ctx, c.Param("id"))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get profile failed"})
	}
	return c.JSON(http.StatusOK, toProfileResp(p))
}

// Heartbeat records a liveness announcement for the authenticated user.
func (h *ProfileHandler) Heartbeat(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Profiles.TouchLastSeen(ctx, middleware.UserID(c)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "presence update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
