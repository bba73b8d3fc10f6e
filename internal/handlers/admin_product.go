package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/shop"
	"storefront/internal/store"
)

/* =========================
   REQUEST DTOs
========================= */

type createProductRequest struct {
	Title         string   `json:"title" binding:"required"`
	Slug          string   `json:"slug"`
	Description   string   `json:"description"`
	Brand         string   `json:"brand"`
	Category      []string `json:"category"`
	Images        []string `json:"images"`
	Price         *float64 `json:"price" binding:"required,gte=0"`
	DiscountPrice *float64 `json:"discountPrice" binding:"omitempty,gt=0"`
	StockQuantity int      `json:"stockQuantity" binding:"gte=0"`
	IsActive      *bool    `json:"isActive"`
	IsFeatured    bool     `json:"isFeatured"`
}

type updateProductRequest struct {
	Title         *string   `json:"title" binding:"omitempty,min=1"`
	Slug          *string   `json:"slug"`
	Description   *string   `json:"description"`
	Brand         *string   `json:"brand"`
	Category      *[]string `json:"category"`
	Images        *[]string `json:"images"`
	Price         *float64  `json:"price" binding:"omitempty,gte=0"`
	DiscountPrice *float64  `json:"discountPrice" binding:"omitempty,gt=0"`
	ClearDiscount bool      `json:"clearDiscount"`
	StockQuantity *int      `json:"stockQuantity" binding:"omitempty,gte=0"`
	IsActive      *bool     `json:"isActive"`
	IsFeatured    *bool     `json:"isFeatured"`
}

func (r updateProductRequest) toUpdate() store.ProductUpdate {
	return store.ProductUpdate{
		Title:         r.Title,
		Slug:          r.Slug,
		Description:   r.Description,
		Brand:         r.Brand,
		Category:      r.Category,
		Images:        r.Images,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		ClearDiscount: r.ClearDiscount,
		StockQuantity: r.StockQuantity,
		IsActive:      r.IsActive,
		IsFeatured:    r.IsFeatured,
	}
}

/* =========================
   HANDLERS
========================= */

func CreateProduct(catalog *shop.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products"
		defer handlePanic(c, route)

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := catalog.Create(ctx, shop.ProductInput{
			Title:         req.Title,
			Slug:          req.Slug,
			Description:   req.Description,
			Brand:         req.Brand,
			Category:      req.Category,
			Images:        req.Images,
			Price:         *req.Price,
			DiscountPrice: req.DiscountPrice,
			StockQuantity: req.StockQuantity,
			IsActive:      req.IsActive,
			IsFeatured:    req.IsFeatured,
		})
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusCreated, "product created", gin.H{"product": product})
	}
}

func UpdateProduct(catalog *shop.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := catalog.Update(ctx, id, req.toUpdate())
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "product updated", gin.H{"product": product})
	}
}

// DeleteProduct deactivates the product; orders keep their snapshots.
func DeleteProduct(catalog *shop.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /products/:id"
		defer handlePanic(c, route)

		id, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := catalog.Deactivate(ctx, id); err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "product deleted", nil)
	}
}
