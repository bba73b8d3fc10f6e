package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/shop"
	"storefront/internal/store"
)

func parseFloatQuery(c *gin.Context, key string) (*float64, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func GetProducts(catalog *shop.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		page, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		minPrice, ok := parseFloatQuery(c, "minPrice")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid minPrice")
			return
		}
		maxPrice, ok := parseFloatQuery(c, "maxPrice")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid maxPrice")
			return
		}

		filter := store.ProductFilter{
			Category:     strings.TrimSpace(c.Query("category")),
			Brand:        strings.TrimSpace(c.Query("brand")),
			Search:       strings.TrimSpace(c.Query("search")),
			MinPrice:     minPrice,
			MaxPrice:     maxPrice,
			FeaturedOnly: c.Query("featured") == "true",
			Sort:         c.Query("sort"),
			Page:         page,
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		products, total, err := catalog.List(ctx, filter)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{
			"products":   products,
			"pagination": paginationBody(page, total),
		})
	}
}

// GetProduct resolves either an ObjectID or a slug.
func GetProduct(catalog *shop.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:identifier"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := catalog.GetByIdentifier(ctx, c.Param("identifier"))
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{"product": product})
	}
}
