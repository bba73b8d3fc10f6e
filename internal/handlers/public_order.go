package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/shop"
)

/* =========================
   REQUEST DTOs
========================= */

type createOrderRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
}

/* =========================
   CREATE ORDER
========================= */

func CreateOrder(orders *shop.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/create"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.CreateOrder(ctx, userID, req.ShippingAddress, models.PaymentMethod(req.PaymentMethod))
		if err != nil {
			if shop.KindOf(err) == shop.KindInsufficientStock {
				middleware.RecordStockConflict("checkout")
			}
			respondError(c, route, err)
			return
		}

		middleware.RecordOrderCreated(string(order.PaymentMethod))
		respond(c, http.StatusCreated, "order created", gin.H{"order": order})
	}
}

/* =========================
   USER ORDERS
========================= */

func GetMyOrders(orders *shop.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}
		page, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := orders.List(ctx, userID, models.OrderStatus(c.Query("status")), page)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{
			"orders":     list,
			"pagination": paginationBody(page, total),
		})
	}
}

func GetMyOrder(orders *shop.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}
		orderID, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.Get(ctx, userID, orderID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "", gin.H{"order": order})
	}
}

func CancelOrder(orders *shop.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id/cancel"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}
		orderID, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.CancelOrder(ctx, userID, orderID)
		if err != nil {
			respondError(c, route, err)
			return
		}

		middleware.RecordOrderCanceled()
		respond(c, http.StatusOK, "order canceled", gin.H{"order": order})
	}
}
