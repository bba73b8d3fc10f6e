package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID          primitive.ObjectID `bson:"productId" json:"productId"`
	UserID             primitive.ObjectID `bson:"userId" json:"userId"`
	Rating             int                `bson:"rating" json:"rating"`
	Comment            string             `bson:"comment" json:"comment"`
	IsVerifiedPurchase bool               `bson:"isVerifiedPurchase" json:"isVerifiedPurchase"`
	IsApproved         bool               `bson:"isApproved" json:"isApproved"`
	HelpfulCount       int                `bson:"helpfulCount" json:"helpfulCount"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}
