package middleware

import (
	"errors"
	"net/http"
	"strings"

	"lrs-tracker/config"
	"lrs-tracker/internal/models"
	"lrs-tracker/internal/repository"
	"lrs-tracker/internal/utils"

	"github.com/gin-gonic/gin"
)

// Keys set on the gin context by the auth middleware.
const (
	ContextClientID = "clientID"
	ContextLrsID    = "lrsID"
	ContextRole     = "role"
	ContextStore    = "store"
)

// AuthMiddleware validates the bearer access token and stores the client
// identity on the context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Missing bearer token",
			})
			return
		}

		claims, err := utils.ValidateToken(token, cfg.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "invalid_token",
				Message: "Invalid or expired token",
			})
			return
		}

		c.Set(ContextClientID, claims.ClientID)
		c.Set(ContextLrsID, claims.LrsID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireSuper allows only super clients through.
func RequireSuper() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != models.RoleSuper {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "forbidden",
				Message: "Super client required",
			})
			return
		}
		c.Next()
	}
}

// RequireStoreAccess loads the store named by the :lrsId path parameter.
// The store must exist and the caller must be a super client or the
// client bound to that store.
func RequireStoreAccess(stores repository.StoreReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		lrsID := c.Param("lrsId")

		store, err := stores.FindByID(c.Request.Context(), lrsID)
		if errors.Is(err, repository.ErrStoreNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "not_found",
				Message: "LRS not found",
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "server_error",
				Message: "Failed to load LRS",
			})
			return
		}

		if c.GetString(ContextRole) != models.RoleSuper && c.GetString(ContextLrsID) != store.ID.Hex() {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "forbidden",
				Message: "Client has no access to this LRS",
			})
			return
		}

		c.Set(ContextStore, store)
		c.Next()
	}
}
