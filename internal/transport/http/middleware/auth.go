package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/usecase"
)

// AccessAuthenticator validates bearer access tokens.
type AccessAuthenticator interface {
	AuthenticateAccess(ctx context.Context, accessToken string) (*domain.TokenPayload, error)
}

// RequireAuth validates the Authorization header and stores the account id and role id.
func RequireAuth(auth AccessAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			abortWithError(c, http.StatusUnauthorized, "invalid authorization format: expected 'Bearer <token>'")
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "missing access token")
			return
		}

		payload, err := auth.AuthenticateAccess(c.Request.Context(), token)
		if err != nil {
			status, message := usecase.StatusOf(err)
			abortWithError(c, status, message)
			return
		}

		c.Set(AccountIDKey, payload.AccountID)
		c.Set(RoleIDKey, payload.RoleID)

		c.Next()
	}
}
