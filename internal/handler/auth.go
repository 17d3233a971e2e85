package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fairwaylabs/teesheet/internal/config"
	"github.com/fairwaylabs/teesheet/internal/engine"
	"github.com/fairwaylabs/teesheet/internal/middleware"
	"github.com/fairwaylabs/teesheet/internal/model"
	"github.com/fairwaylabs/teesheet/internal/repository"
	"github.com/fairwaylabs/teesheet/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Players *repository.PlayerRepo
}

func NewAuthHandler(cfg config.Config, players *repository.PlayerRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Players: players}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Player  *model.Player `json:"player"`
	Token   string        `json:"token"`
	Expires time.Time     `json:"expires"`
}

// Login verifies the player's credentials and issues an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	player, hash, err := h.Players.FindByEmail(ctx, req.Email)
	if errors.Is(err, engine.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !utils.VerifyPassword(hash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, player.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	return c.JSON(http.StatusOK, loginResp{
		Player:  player,
		Token:   access.Token,
		Expires: access.Exp,
	})
}

// Me returns the authenticated player's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	playerID, ok := middleware.PlayerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	player, err := h.Players.FindByID(ctx, playerID)
	if errors.Is(err, engine.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "player not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, player)
}
