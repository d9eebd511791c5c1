package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Statement is one learning-activity event record as the dashboard sees it.
// Only the fields the aggregation needs are mapped; the rest of the stored
// document is ignored on decode.
type Statement struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	StoreID   string             `json:"lrsId,omitempty" bson:"lrs_id,omitempty"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
	Statement StatementBody      `json:"statement" bson:"statement"`
}

// StatementBody mirrors the nested "statement" sub-document.
type StatementBody struct {
	Actor     Actor  `json:"actor" bson:"actor"`
	Timestamp string `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

// Actor is the polymorphic identity block of a statement. In practice
// exactly one identifier is populated.
type Actor struct {
	Name        string   `json:"name,omitempty" bson:"name,omitempty"`
	Mbox        string   `json:"mbox,omitempty" bson:"mbox,omitempty"`
	OpenID      string   `json:"openid,omitempty" bson:"openid,omitempty"`
	MboxSha1Sum string   `json:"mbox_sha1sum,omitempty" bson:"mbox_sha1sum,omitempty"`
	Account     *Account `json:"account,omitempty" bson:"account,omitempty"`
}

type Account struct {
	Name     string `json:"name" bson:"name"`
	HomePage string `json:"homePage" bson:"homePage"`
}
