package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/shop"
	"storefront/internal/store"
)

type updateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	TrackingNumber string `json:"trackingNumber"`
}

type paymentSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

func adminOrderFilter(c *gin.Context) store.OrderFilter {
	return store.OrderFilter{
		Status: models.OrderStatus(strings.TrimSpace(c.Query("status"))),
		Search: c.Query("search"),
	}
}

func GetAllOrders(orders *shop.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/admin/all"
		defer handlePanic(c, route)

		page, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		filter := adminOrderFilter(c)
		filter.Page = page

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := orders.AdminList(ctx, filter)
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

// UpdateOrderStatus lets operators set any status without transition checks.
func UpdateOrderStatus(orders *shop.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/admin/:id/status"
		defer handlePanic(c, route)

		orderID, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.AdminUpdateStatus(ctx, orderID, models.OrderStatus(req.Status), req.TrackingNumber)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "order status updated", gin.H{"order": order})
	}
}

func AttachPaymentSession(orders *shop.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/admin/:id/payment-session"
		defer handlePanic(c, route)

		orderID, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req paymentSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := orders.AttachPaymentSession(ctx, orderID, req.SessionID)
		if err != nil {
			respondError(c, route, err)
			return
		}
		respond(c, http.StatusOK, "payment session attached", gin.H{"order": order})
	}
}

/* =========================
   EXPORT
========================= */

var orderExportHeaders = []string{
	"Order Number", "Customer", "Phone", "Province", "District", "Status",
	"Payment Method", "Payment Status", "Items", "Subtotal", "Shipping", "Total",
	"Tracking Number", "Created At",
}

func buildOrdersWorkbook(list []models.Order) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return nil, err
	}

	header := sheet.AddRow()
	for _, h := range orderExportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, o := range list {
		quantity := 0
		for _, item := range o.Items {
			quantity += item.Quantity
		}

		row := sheet.AddRow()
		row.AddCell().SetValue(o.OrderNumber)
		row.AddCell().SetValue(o.ShippingAddress.Name)
		row.AddCell().SetValue(o.ShippingAddress.Phone)
		row.AddCell().SetValue(o.ShippingAddress.Province)
		row.AddCell().SetValue(o.ShippingAddress.District)
		row.AddCell().SetValue(string(o.Status))
		row.AddCell().SetValue(string(o.PaymentMethod))
		row.AddCell().SetValue(string(o.PaymentStatus))
		row.AddCell().SetValue(quantity)
		row.AddCell().SetValue(o.Subtotal)
		row.AddCell().SetValue(o.ShippingCost)
		row.AddCell().SetValue(o.TotalAmount)
		row.AddCell().SetValue(o.TrackingNumber)
		row.AddCell().SetValue(o.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return file, nil
}

// ExportOrders streams every order matching the status/search filter as xlsx.
func ExportOrders(orders *shop.Orders) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/admin/export"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, _, err := orders.AdminList(ctx, adminOrderFilter(c))
		if err != nil {
			respondError(c, route, err)
			return
		}

		file, err := buildOrdersWorkbook(list)
		if err != nil {
			respondError(c, route, err)
			return
		}

		filename := "orders-" + time.Now().UTC().Format("20060102") + ".xlsx"
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := file.Write(c.Writer); err != nil {
			zap.L().Error("order export write failed", zap.String("route", route), zap.Error(err))
		}
	}
}

/* =========================
   LIVE FEED
========================= */

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     allowedOrigin,
}

func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(config.AppEnv.CORSOrigins) == 0 {
		return true
	}
	for _, allowed := range config.AppEnv.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// OrderFeed upgrades to a websocket that receives every order event.
// upgradeFeed is the only part of the feed that may still answer with JSON;
// once it returns a conn the response writer is hijacked.
func upgradeFeed(c *gin.Context, route string) *websocket.Conn {
	defer handlePanic(c, route)

	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("order feed upgrade failed", zap.String("route", route), zap.Error(err))
		return nil
	}
	return conn
}

func OrderFeed(hub *events.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/admin/feed"

		conn := upgradeFeed(c, route)
		if conn == nil {
			return
		}
		hub.Serve(conn)
	}
}
