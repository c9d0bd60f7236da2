package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arasli/duet-chat/internal/config"
	"github.com/arasli/duet-chat/internal/repository"
	"github.com/arasli/duet-chat/internal/utils"
)

// AuthHandler bundles dependencies for the sign-up and login endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Profiles *repository.ProfileRepo
}

func NewAuthHandler(cfg config.Config, p *repository.ProfileRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Profiles: p}
}

// ----- DTOs -----

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signUpResp struct {
	ProfileID string `json:"profile_id"`
}

type loginResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignUp creates a profile. Registration alone does not yield a session
// token; clients follow up with a login call.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Profiles.Create(ctx, req.Username, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrUsernameExists {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "username already taken",
				"code":  "username_taken",
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign up failed"})
	}
	return c.JSON(http.StatusCreated, signUpResp{ProfileID: id})
}

// Login verifies credentials and mints a signed session token. The 401
// message never distinguishes unknown users from wrong passwords, to avoid
// account enumeration. The same token is returned in both fields; there is
// no separate refresh mechanism.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, ok, err := h.Profiles.VerifyLogin(ctx, req.Username, req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid username or password"})
	}

	ttl := time.Duration(h.Cfg.SessionTTLDays) * 24 * time.Hour
	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, id, ttl)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, loginResp{
		AccessToken:  tok.Token,
		RefreshToken: tok.Token,
	})
}
