package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a catalog entry. InStock is derived from StockQuantity and never stored.
type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Slug          string             `bson:"slug" json:"slug"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Brand         string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Category      StringList         `bson:"category" json:"category"`
	Images        []string           `bson:"images" json:"images"`
	Price         float64            `bson:"price" json:"price"`
	DiscountPrice *float64           `bson:"discountPrice,omitempty" json:"discountPrice,omitempty"`
	StockQuantity int                `bson:"stockQuantity" json:"stockQuantity"`
	InStock       bool               `bson:"-" json:"inStock"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	IsFeatured    bool               `bson:"isFeatured" json:"isFeatured"`
	Rating        float64            `bson:"rating" json:"rating"`
	ReviewCount   int                `bson:"reviewCount" json:"reviewCount"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Normalize fills the derived fields after a decode.
func (p *Product) Normalize() {
	p.InStock = p.StockQuantity > 0
	if p.Images == nil {
		p.Images = []string{}
	}
}

// PrimaryImage returns the first image or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
