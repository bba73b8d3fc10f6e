package memstore

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type cartRepo struct{ s *Store }

func (r cartRepo) Get(_ context.Context, userID primitive.ObjectID) (models.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cart, ok := r.s.carts[userID]
	if !ok {
		return models.Cart{}, store.ErrNotFound
	}
	return copyCart(cart), nil
}

func (r cartRepo) Save(ctx context.Context, cart *models.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if existing, ok := r.s.carts[cart.UserID]; ok {
		cart.ID = existing.ID
		cart.CreatedAt = existing.CreatedAt
	}
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	cart.UpdatedAt = now
	track(ctx, r.s, "carts", r.s.carts, cart.UserID, copyCart)
	r.s.carts[cart.UserID] = copyCart(*cart)
	return nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Insert(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.PaymentSessionID != "" {
		for _, existing := range r.s.orders {
			if existing.PaymentSessionID == order.PaymentSessionID {
				return store.ErrConflict
			}
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	now := r.s.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	track(ctx, r.s, "orders", r.s.orders, order.ID, copyOrder)
	r.s.orders[order.ID] = copyOrder(*order)
	return nil
}

func (r orderRepo) Get(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.orders[id]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	return copyOrder(order), nil
}

func (r orderRepo) GetForUser(ctx context.Context, userID, id primitive.ObjectID) (models.Order, error) {
	order, err := r.Get(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if order.UserID != userID {
		return models.Order{}, store.ErrNotFound
	}
	return order, nil
}

func (r orderRepo) List(_ context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	r.s.mu.RLock()
	matched := make([]models.Order, 0)
	for _, o := range r.s.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Search != "" &&
			!containsFold(o.ShippingAddress.Name, filter.Search) &&
			!containsFold(o.ShippingAddress.Phone, filter.Search) &&
			!containsFold(o.TrackingNumber, filter.Search) {
			continue
		}
		matched = append(matched, copyOrder(o))
	}
	r.s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	return paginate(matched, filter.Page), total, nil
}

func (r orderRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) (models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[id]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	if order.Status != from {
		return models.Order{}, store.ErrStaleState
	}
	order.Status = to
	order.UpdatedAt = r.s.now()
	track(ctx, r.s, "orders", r.s.orders, id, copyOrder)
	r.s.orders[id] = order
	return copyOrder(order), nil
}

func (r orderRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus, trackingNumber string) (models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[id]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	order.Status = status
	if trackingNumber != "" {
		order.TrackingNumber = trackingNumber
	}
	order.UpdatedAt = r.s.now()
	track(ctx, r.s, "orders", r.s.orders, id, copyOrder)
	r.s.orders[id] = order
	return copyOrder(order), nil
}

func (r orderRepo) ClearStockDecremented(ctx context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	if !order.StockDecremented {
		return store.ErrStaleState
	}
	order.StockDecremented = false
	track(ctx, r.s, "orders", r.s.orders, id, copyOrder)
	r.s.orders[id] = order
	return nil
}

func (r orderRepo) SetPaymentSession(ctx context.Context, id primitive.ObjectID, sessionID string) (models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[id]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	for otherID, other := range r.s.orders {
		if otherID != id && other.PaymentSessionID == sessionID {
			return models.Order{}, store.ErrConflict
		}
	}
	order.PaymentSessionID = sessionID
	order.UpdatedAt = r.s.now()
	track(ctx, r.s, "orders", r.s.orders, id, copyOrder)
	r.s.orders[id] = order
	return copyOrder(order), nil
}

func (r orderRepo) HasDelivered(_ context.Context, userID, productID primitive.ObjectID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, o := range r.s.orders {
		if o.UserID != userID || o.Status != models.OrderStatusDelivered {
			continue
		}
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}
