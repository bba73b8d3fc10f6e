package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/shop"
)

func GetCategories(categories *shop.Categories) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := categories.List(ctx)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{"categories": list})
	}
}

func GetCategory(categories *shop.Categories) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /categories/:slug"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		category, err := categories.GetBySlug(ctx, c.Param("slug"))
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{"category": category})
	}
}

// GetProductCategories lists the category names in use on active products,
// independent of the managed category tree.
func GetProductCategories(catalog *shop.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/categories/list"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		values, err := catalog.Categories(ctx)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{"categories": values})
	}
}

func GetProductBrands(catalog *shop.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/brands/list"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		values, err := catalog.Brands(ctx)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{"brands": values})
	}
}
