// Package events delivers order lifecycle notifications after the change is
// committed. Delivery is best effort; a failed publish never undoes an order.
package events

import (
	"context"
	"errors"
	"time"
)

const (
	OrderCreated        = "order.created"
	OrderCanceled       = "order.canceled"
	OrderStatusChanged  = "order.status_changed"
	OrderPaymentSession = "order.payment_session_attached"
)

type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"totalAmount"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event OrderEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
