package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/store"
)

type Orders struct {
	store     store.Store
	catalog   *Catalog
	publisher events.Publisher
	logger    *zap.Logger
	validate  *validator.Validate
	now       func() time.Time
}

func NewOrders(st store.Store, catalog *Catalog, publisher events.Publisher, logger *zap.Logger) *Orders {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Orders{
		store:     st,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// NewOrderNumber builds the human reference shown to customers, e.g.
// ORD-20240131-1f3a9c2e.
func NewOrderNumber(at time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), id[:8])
}

func (s *Orders) validateAddress(addr models.ShippingAddress) error {
	trimmed := models.ShippingAddress{
		Name:         strings.TrimSpace(addr.Name),
		Phone:        strings.TrimSpace(addr.Phone),
		Province:     strings.TrimSpace(addr.Province),
		District:     strings.TrimSpace(addr.District),
		Municipality: strings.TrimSpace(addr.Municipality),
		Ward:         strings.TrimSpace(addr.Ward),
		Street:       strings.TrimSpace(addr.Street),
	}
	err := s.validate.Struct(trimmed)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := "shippingAddress." + strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		fields = append(fields, FieldError{Field: name, Message: fe.Field() + " is required"})
	}
	return &Error{Kind: KindValidation, Message: "shipping address is incomplete", Fields: fields}
}

func (s *Orders) publish(ctx context.Context, eventType string, order models.Order) {
	err := s.publisher.Publish(ctx, events.OrderEvent{
		Type:        eventType,
		OrderID:     order.ID.Hex(),
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID.Hex(),
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("order event not delivered",
			zap.String("type", eventType),
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err),
		)
	}
}

// CreateOrder turns the user's cart into a pending order. Stock decrement,
// order insert and cart clear commit together or not at all.
func (s *Orders) CreateOrder(ctx context.Context, userID primitive.ObjectID, addr models.ShippingAddress, method models.PaymentMethod) (models.Order, error) {
	if err := s.validateAddress(addr); err != nil {
		return models.Order{}, err
	}
	if !method.Valid() {
		return models.Order{}, invalid("paymentMethod", "invalid payment method")
	}

	var order models.Order
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.store.Carts().Get(ctx, userID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && len(cart.Items) == 0) {
			return &Error{Kind: KindEmptyCart, Message: "cart is empty"}
		}
		if err != nil {
			return translate(err, "cart")
		}

		items := make([]models.OrderItem, 0, len(cart.Items))
		subtotal := decimal.Zero
		for _, line := range cart.Items {
			p, err := s.store.Products().Get(ctx, line.ProductID)
			if errors.Is(err, store.ErrNotFound) {
				return insufficientStock(line.ProductID, "", 0, line.Quantity)
			}
			if err != nil {
				return translate(err, "product")
			}
			if !p.IsActive || !p.InStock || p.StockQuantity < line.Quantity {
				available := p.StockQuantity
				if !p.IsActive {
					available = 0
				}
				return insufficientStock(p.ID, p.Title, available, line.Quantity)
			}

			price := SalePrice(p)
			items = append(items, models.OrderItem{
				ProductID: p.ID,
				Product: models.ProductSnapshot{
					Title: p.Title,
					Price: price,
					Image: p.PrimaryImage(),
				},
				Quantity: line.Quantity,
				Price:    price,
			})
			subtotal = subtotal.Add(lineTotal(price, line.Quantity))
		}

		for _, item := range items {
			if err := s.catalog.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		shipping := ShippingFor(subtotal)
		now := s.now().UTC()
		order = models.Order{
			OrderNumber:      NewOrderNumber(now),
			UserID:           userID,
			Items:            items,
			ShippingAddress:  addr,
			PaymentMethod:    method,
			PaymentStatus:    models.PaymentStatusPending,
			Subtotal:         subtotal.InexactFloat64(),
			ShippingCost:     shipping.InexactFloat64(),
			TotalAmount:      subtotal.Add(shipping).InexactFloat64(),
			Status:           models.OrderStatusPending,
			StockDecremented: true,
			CreatedAt:        now,
		}
		if err := s.store.Orders().Insert(ctx, &order); err != nil {
			return translate(err, "order")
		}

		cart.Items = []models.CartItem{}
		return translate(s.store.Carts().Save(ctx, &cart), "cart")
	})
	if err != nil {
		if KindOf(err) == KindInsufficientStock {
			s.logger.Info("checkout rejected", zap.String("user_id", userID.Hex()), zap.Error(err))
		}
		return models.Order{}, err
	}

	ids := make([]primitive.ObjectID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	s.catalog.forgetIDs(ctx, ids...)

	s.logger.Info("order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", userID.Hex()),
		zap.Float64("total_amount", order.TotalAmount),
	)
	s.publish(ctx, events.OrderCreated, order)
	return order, nil
}

// CancelOrder cancels a pending order owned by userID and returns its stock.
// Stock comes back only while the order still records a decrement, so it is
// restored at most once.
func (s *Orders) CancelOrder(ctx context.Context, userID, orderID primitive.ObjectID) (models.Order, error) {
	var canceled models.Order
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := s.store.Orders().GetForUser(ctx, userID, orderID)
		if err != nil {
			return translate(err, "order")
		}
		if order.Status != models.OrderStatusPending {
			return invalidTransition(string(order.Status), string(models.OrderStatusCanceled))
		}

		canceled, err = s.store.Orders().TransitionStatus(ctx, orderID, models.OrderStatusPending, models.OrderStatusCanceled)
		if errors.Is(err, store.ErrStaleState) {
			return invalidTransition("its current status", string(models.OrderStatusCanceled))
		}
		if err != nil {
			return translate(err, "order")
		}

		err = s.store.Orders().ClearStockDecremented(ctx, orderID)
		if errors.Is(err, store.ErrStaleState) {
			s.logger.Warn("canceled order had no stock decrement to restore", zap.String("order_id", orderID.Hex()))
			return nil
		}
		if err != nil {
			return translate(err, "order")
		}
		for _, item := range order.Items {
			if err := s.catalog.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		canceled.StockDecremented = false
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	ids := make([]primitive.ObjectID, 0, len(canceled.Items))
	for _, item := range canceled.Items {
		ids = append(ids, item.ProductID)
	}
	s.catalog.forgetIDs(ctx, ids...)

	s.logger.Info("order canceled",
		zap.String("order_id", canceled.ID.Hex()),
		zap.String("user_id", userID.Hex()),
	)
	s.publish(ctx, events.OrderCanceled, canceled)
	return canceled, nil
}

func (s *Orders) List(ctx context.Context, userID primitive.ObjectID, status models.OrderStatus, page store.Page) ([]models.Order, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, invalid("status", "invalid status "+string(status))
	}
	orders, total, err := s.store.Orders().List(ctx, store.OrderFilter{UserID: &userID, Status: status, Page: page})
	if err != nil {
		return nil, 0, translate(err, "orders")
	}
	return orders, total, nil
}

func (s *Orders) Get(ctx context.Context, userID, orderID primitive.ObjectID) (models.Order, error) {
	order, err := s.store.Orders().GetForUser(ctx, userID, orderID)
	if err != nil {
		return models.Order{}, translate(err, "order")
	}
	return order, nil
}

func (s *Orders) AdminList(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, invalid("status", "invalid status "+string(filter.Status))
	}
	filter.UserID = nil
	filter.Search = strings.TrimSpace(filter.Search)
	orders, total, err := s.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "orders")
	}
	return orders, total, nil
}

// AdminUpdateStatus sets any valid status. Operators may skip or reverse states
// and stock is left alone.
func (s *Orders) AdminUpdateStatus(ctx context.Context, orderID primitive.ObjectID, status models.OrderStatus, trackingNumber string) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, invalid("status", "invalid status "+string(status))
	}
	order, err := s.store.Orders().SetStatus(ctx, orderID, status, strings.TrimSpace(trackingNumber))
	if err != nil {
		return models.Order{}, translate(err, "order")
	}

	s.logger.Info("order status set by admin",
		zap.String("order_id", orderID.Hex()),
		zap.String("status", string(status)),
	)
	s.publish(ctx, events.OrderStatusChanged, order)
	return order, nil
}

// AttachPaymentSession links a gateway checkout session to an order. Each
// session id may belong to one order only.
func (s *Orders) AttachPaymentSession(ctx context.Context, orderID primitive.ObjectID, sessionID string) (models.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return models.Order{}, invalid("sessionId", "sessionId is required")
	}
	order, err := s.store.Orders().SetPaymentSession(ctx, orderID, sessionID)
	if errors.Is(err, store.ErrConflict) {
		return models.Order{}, conflict("payment session is already attached to another order")
	}
	if err != nil {
		return models.Order{}, translate(err, "order")
	}
	s.publish(ctx, events.OrderPaymentSession, order)
	return order, nil
}
