package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Client roles
const (
	RoleSuper = "super"
	RoleStore = "store"
)

// Client is an API credential. Store clients are bound to a single LRS;
// super clients see every store and the global dashboard.
type Client struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ClientID   string             `json:"clientId" bson:"client_id"`
	SecretHash string             `json:"-" bson:"secret_hash"`
	LrsID      string             `json:"lrsId,omitempty" bson:"lrs_id,omitempty"`
	Role       string             `json:"role" bson:"role"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
}

// IsSuper reports whether the client may read every store.
func (c *Client) IsSuper() bool {
	return c.Role == RoleSuper
}

// TokenRequest - form body of the client credentials grant
type TokenRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type" binding:"required"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
}

// TokenResponse - OAuth2 access token response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ClientInfo - identity of the authenticated client
type ClientInfo struct {
	ClientID string `json:"clientId"`
	LrsID    string `json:"lrsId,omitempty"`
	Role     string `json:"role"`
}
