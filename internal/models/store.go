package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is one LRS instance. Statements reference it through lrs_id.
type Store struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Owner       string             `json:"owner,omitempty" bson:"owner,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
}

// StoreListResponse - response body for the store listing
type StoreListResponse struct {
	Stores []*Store `json:"stores"`
	Total  int      `json:"total"`
	Query  string   `json:"query,omitempty"`
}
