package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentEsewa          PaymentMethod = "esewa"
	PaymentKhalti         PaymentMethod = "khalti"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentCard           PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentEsewa, PaymentKhalti, PaymentBankTransfer, PaymentCard:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ProductSnapshot is the product data frozen into an order line.
type ProductSnapshot struct {
	Title string  `bson:"title" json:"title"`
	Price float64 `bson:"price" json:"price"`
	Image string  `bson:"image,omitempty" json:"image,omitempty"`
}

// OrderItem represents a single product entry within an order.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Product   ProductSnapshot    `bson:"product" json:"product"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
}

type ShippingAddress struct {
	Name         string `bson:"name" json:"name" validate:"required"`
	Phone        string `bson:"phone" json:"phone" validate:"required"`
	Province     string `bson:"province" json:"province" validate:"required"`
	District     string `bson:"district" json:"district" validate:"required"`
	Municipality string `bson:"municipality" json:"municipality" validate:"required"`
	Ward         string `bson:"ward" json:"ward" validate:"required"`
	Street       string `bson:"street" json:"street" validate:"required"`
}

// Order defines the persisted order document. Totals and items never change after insert.
type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber      string             `bson:"orderNumber" json:"orderNumber"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	Items            []OrderItem        `bson:"items" json:"items"`
	ShippingAddress  ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod    PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus    PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentSessionID string             `bson:"paymentSessionId,omitempty" json:"paymentSessionId,omitempty"`
	Subtotal         float64            `bson:"subtotal" json:"subtotal"`
	ShippingCost     float64            `bson:"shippingCost" json:"shippingCost"`
	TotalAmount      float64            `bson:"totalAmount" json:"totalAmount"`
	Status           OrderStatus        `bson:"status" json:"status"`
	TrackingNumber   string             `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	StockDecremented bool               `bson:"stockDecremented" json:"-"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}
