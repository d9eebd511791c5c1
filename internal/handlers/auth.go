package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"lrs-tracker/config"
	"lrs-tracker/internal/middleware"
	"lrs-tracker/internal/models"
	"lrs-tracker/internal/repository"
	"lrs-tracker/internal/utils"

	"github.com/gin-gonic/gin"
)

const grantClientCredentials = "client_credentials"

type AuthHandler struct {
	cfg     *config.Config
	clients repository.ClientReader
}

func NewAuthHandler(cfg *config.Config, clients repository.ClientReader) *AuthHandler {
	return &AuthHandler{
		cfg:     cfg,
		clients: clients,
	}
}

// Token godoc
// @Summary Issue an access token
// @Description OAuth2 client credentials grant. Credentials go in HTTP basic auth or in the form body.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "client_credentials"
// @Param client_id formData string false "Client id"
// @Param client_secret formData string false "Client secret"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /oauth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	if req.GrantType != grantClientCredentials {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "unsupported_grant_type",
			Message: "Only client_credentials is supported",
		})
		return
	}

	if id, secret, ok := c.Request.BasicAuth(); ok {
		req.ClientID, req.ClientSecret = id, secret
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		h.invalidClient(c)
		return
	}

	client, err := h.clients.FindByClientID(c.Request.Context(), req.ClientID)
	if errors.Is(err, repository.ErrClientNotFound) {
		h.invalidClient(c)
		return
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "client lookup failed", "client_id", req.ClientID, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "server_error",
			Message: "Failed to verify client",
		})
		return
	}

	if !utils.CheckSecret(client.SecretHash, req.ClientSecret) {
		h.invalidClient(c)
		return
	}

	lrsID := client.LrsID
	if client.IsSuper() {
		lrsID = ""
	}

	token, err := utils.GenerateAccessToken(client.ClientID, lrsID, client.Role, h.cfg.JWTSecret, h.cfg.JWTAccessExpiration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "server_error",
			Message: "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.cfg.JWTAccessExpiration.Seconds()),
	})
}

func (h *AuthHandler) invalidClient(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="lrs"`)
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "invalid_client",
		Message: "Unknown client or wrong secret",
	})
}

// GetMe godoc
// @Summary Current client
// @Description Identity carried by the access token
// @Tags auth
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} models.ClientInfo
// @Failure 401 {object} models.ErrorResponse
// @Router /oauth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, models.ClientInfo{
		ClientID: c.GetString(middleware.ContextClientID),
		LrsID:    c.GetString(middleware.ContextLrsID),
		Role:     c.GetString(middleware.ContextRole),
	})
}
