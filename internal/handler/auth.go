package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-booking/internal/middleware"
	"github.com/iliyamo/clinic-booking/internal/service"
	"github.com/iliyamo/clinic-booking/internal/utils"
)

// AuthHandler issues provider access tokens.
type AuthHandler struct {
	Providers    *service.ProviderService
	JWTSecret    string
	AccessTTLMin int
	Log          *zap.Logger
}

// NewAuthHandler panics when the provider service is nil.
func NewAuthHandler(p *service.ProviderService, secret string, ttlMin int, log *zap.Logger) *AuthHandler {
	if p == nil {
		panic("nil provider service passed to NewAuthHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Providers: p, JWTSecret: secret, AccessTTLMin: ttlMin, Log: log}
}

type loginReq struct {
	Slug     string `json:"slug"`
	Password string `json:"password"`
}

type loginResp struct {
	ProviderID uint64    `json:"provider_id"`
	Name       string    `json:"name"`
	Token      string    `json:"token"`
	Expires    time.Time `json:"expires"`
}

// Login checks slug and password and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Slug) == "" || req.Password == "" {
		return badRequest(c, "slug/password required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Providers.Authenticate(ctx, req.Slug, req.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, p.ID, middleware.RoleProvider, h.AccessTTLMin)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, loginResp{ProviderID: p.ID, Name: p.Name, Token: tok.Token, Expires: tok.Exp})
}
