package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is a browsable grouping; deleting one only clears IsActive.
type Category struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name"`
	NameNp      string              `bson:"nameNp,omitempty" json:"nameNp,omitempty"`
	Slug        string              `bson:"slug" json:"slug"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Image       string              `bson:"image,omitempty" json:"image,omitempty"`
	ParentID    *primitive.ObjectID `bson:"parentId" json:"parentId"`
	IsActive    bool                `bson:"isActive" json:"isActive"`
	SortOrder   int                 `bson:"sortOrder" json:"sortOrder"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}
