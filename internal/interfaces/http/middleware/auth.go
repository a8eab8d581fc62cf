package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/interfaces/http/response"
	"multisig-hub.backend/pkg/jwt"
	"multisig-hub.backend/pkg/logger"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// OwnerKey is the context key of the authenticated owner address
	OwnerKey = "owner"
)

// AuthMiddleware accepts access tokens only and binds the owner to the request.
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			response.Error(c, domainerrors.Unauthorized("Authorization header is required"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Error(c, domainerrors.Unauthorized("Invalid authorization format. Use: Bearer <token>"))
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			logger.Debug(c.Request.Context(), "rejected bearer token")
			if errors.Is(err, jwt.ErrExpiredToken) {
				response.Error(c, domainerrors.NewAppError(http.StatusUnauthorized, domainerrors.CodeUnauthorized, "Token has expired", domainerrors.ErrTokenExpired))
			} else {
				response.Error(c, domainerrors.Unauthorized("Invalid token"))
			}
			c.Abort()
			return
		}

		owner := claims.OwnerAddress()
		c.Set(OwnerKey, owner)
		c.Request = c.Request.WithContext(logger.WithOwner(c.Request.Context(), owner.Hex()))
		c.Next()
	}
}

// GetOwner returns the owner bound by AuthMiddleware.
func GetOwner(c *gin.Context) (common.Address, bool) {
	v, ok := c.Get(OwnerKey)
	if !ok {
		return common.Address{}, false
	}
	owner, ok := v.(common.Address)
	return owner, ok
}
