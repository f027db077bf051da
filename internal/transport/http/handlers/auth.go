package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/transport/http/middleware"
	"github.com/evans-manyala/enxero/internal/usecase"
)

// Authenticator is the auth orchestration the handlers call.
type Authenticator interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, client usecase.ClientInfo) (*usecase.AuthResult, error)
	Logout(ctx context.Context, refreshToken string, client usecase.ClientInfo)
}

// PasswordChanger changes an authenticated account's password.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string, client usecase.ClientInfo) error
}

// SessionManager lists and revokes an account's sessions.
type SessionManager interface {
	ListActive(ctx context.Context, accountID string) ([]domain.Session, error)
	InvalidateAll(ctx context.Context, accountID string, client usecase.ClientInfo) (int64, error)
}

// AuthHandler exposes the /auth endpoints.
type AuthHandler struct {
	auth      Authenticator
	passwords PasswordChanger
	sessions  SessionManager
	now       func() time.Time
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth Authenticator, passwords PasswordChanger, sessions SessionManager) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		passwords: passwords,
		sessions:  sessions,
		now:       time.Now,
	}
}

// RegisterRoutes binds the auth routes. loginMiddlewares run ahead of the login handler;
// requireAuth guards the account routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc, loginMiddlewares ...gin.HandlerFunc) {
	r.POST("/register", h.register)
	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	r.POST("/login", append(chain, h.login)...)
	r.POST("/refresh", h.refresh)
	r.POST("/logout", h.logout)

	r.POST("/change-password", requireAuth, h.changePassword)
	r.GET("/sessions", requireAuth, h.listSessions)
	r.DELETE("/sessions", requireAuth, h.revokeSessions)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid registration payload")
		return
	}

	result, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Client:    middleware.ClientInfo(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, newAuthResponse(result, h.now()))
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid login payload")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Client:   middleware.ClientInfo(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, newAuthResponse(result, h.now()))
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "refresh_token is required")
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), strings.TrimSpace(req.RefreshToken), middleware.ClientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, newAuthResponse(result, h.now()))
}

// logout reports success whatever happens to the token.
func (h *AuthHandler) logout(c *gin.Context) {
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)

	h.auth.Logout(c.Request.Context(), strings.TrimSpace(req.RefreshToken), middleware.ClientInfo(c))

	respondSuccess(c, http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) changePassword(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, middleware.NewErrorEnvelope(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "current_password and new_password are required")
		return
	}

	if err := h.passwords.ChangePassword(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword, middleware.ClientInfo(c)); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, MessageResponse{Message: "password changed"})
}

func (h *AuthHandler) listSessions(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, middleware.NewErrorEnvelope(c, "authentication required"))
		return
	}

	sessions, err := h.sessions.ListActive(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, newSessionResponses(sessions))
}

func (h *AuthHandler) revokeSessions(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, middleware.NewErrorEnvelope(c, "authentication required"))
		return
	}

	removed, err := h.sessions.InvalidateAll(c.Request.Context(), accountID, middleware.ClientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"revoked": removed})
}
