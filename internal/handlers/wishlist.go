package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/shop"
)

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

func GetWishlist(wishlists *shop.Wishlists) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /wishlist"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		wishlist, err := wishlists.Get(ctx, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{"wishlist": wishlist})
	}
}

func AddToWishlist(wishlists *shop.Wishlists) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /wishlist/add"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		var req wishlistRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		productID, ok := parseProductID(c, route, req.ProductID)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		wishlist, err := wishlists.Add(ctx, userID, productID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "added to wishlist", gin.H{"wishlist": wishlist})
	}
}

func RemoveFromWishlist(wishlists *shop.Wishlists) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /wishlist/remove/:productId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}
		productID, ok := parseProductID(c, route, c.Param("productId"))
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		wishlist, err := wishlists.Remove(ctx, userID, productID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "removed from wishlist", gin.H{"wishlist": wishlist})
	}
}

func ClearWishlist(wishlists *shop.Wishlists) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /wishlist/clear"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		wishlist, err := wishlists.Clear(ctx, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "wishlist cleared", gin.H{"wishlist": wishlist})
	}
}

func CheckWishlist(wishlists *shop.Wishlists) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /wishlist/check/:productId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}
		productID, ok := parseProductID(c, route, c.Param("productId"))
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		in, err := wishlists.Contains(ctx, userID, productID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{"isInWishlist": in})
	}
}
