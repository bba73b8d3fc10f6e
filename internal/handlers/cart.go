package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/middleware"
	"storefront/internal/shop"
)

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity"`
}

type updateCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required"`
}

func parseProductID(c *gin.Context, route, raw string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid productId")
		return primitive.NilObjectID, false
	}
	return id, true
}

func respondCartError(c *gin.Context, route, operation string, err error) {
	if shop.KindOf(err) == shop.KindInsufficientStock {
		middleware.RecordStockConflict(operation)
	}
	respondError(c, route, err)
}

func GetCart(carts *shop.Carts) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		cart, err := carts.Get(ctx, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{"cart": cart})
	}
}

func AddToCart(carts *shop.Carts) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/add"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		var req addToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		productID, ok := parseProductID(c, route, req.ProductID)
		if !ok {
			return
		}
		qty := 1
		if req.Quantity != nil {
			qty = *req.Quantity
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		cart, err := carts.AddItem(ctx, userID, productID, qty)
		if err != nil {
			respondCartError(c, route, "cart_add", err)
			return
		}
		respond(c, http.StatusOK, "item added to cart", gin.H{"cart": cart})
	}
}

func UpdateCartItem(carts *shop.Carts) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/update"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		var req updateCartRequest
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

		cart, err := carts.UpdateQuantity(ctx, userID, productID, *req.Quantity)
		if err != nil {
			respondCartError(c, route, "cart_update", err)
			return
		}
		respond(c, http.StatusOK, "cart updated", gin.H{"cart": cart})
	}
}

func RemoveFromCart(carts *shop.Carts) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/remove/:productId"
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

		cart, err := carts.RemoveItem(ctx, userID, productID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "item removed from cart", gin.H{"cart": cart})
	}
}

func ClearCart(carts *shop.Carts) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/clear"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		cart, err := carts.Clear(ctx, userID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "cart cleared", gin.H{"cart": cart})
	}
}
