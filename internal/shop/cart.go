package shop

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/store"
)

// CartLine is a cart item joined with the live product. Product is nil when the
// product no longer exists.
type CartLine struct {
	ProductID primitive.ObjectID `json:"productId"`
	Quantity  int                `json:"quantity"`
	Price     float64            `json:"price"`
	Subtotal  float64            `json:"subtotal"`
	Product   *models.Product    `json:"product,omitempty"`
}

type CartView struct {
	ID        primitive.ObjectID `json:"id"`
	UserID    primitive.ObjectID `json:"userId"`
	Items     []CartLine         `json:"items"`
	ItemCount int                `json:"itemCount"`
	Total     float64            `json:"total"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type Carts struct {
	store   store.Store
	catalog *Catalog
	logger  *zap.Logger
}

func NewCarts(st store.Store, catalog *Catalog, logger *zap.Logger) *Carts {
	return &Carts{store: st, catalog: catalog, logger: logger}
}

func (s *Carts) load(ctx context.Context, userID primitive.ObjectID) (models.Cart, error) {
	cart, err := s.store.Carts().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Cart{}, notFound("cart")
	}
	if err != nil {
		return models.Cart{}, translate(err, "cart")
	}
	return cart, nil
}

func (s *Carts) loadOrCreate(ctx context.Context, userID primitive.ObjectID) (models.Cart, error) {
	cart, err := s.store.Carts().Get(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.Cart{}, translate(err, "cart")
	}
	cart = models.Cart{UserID: userID, Items: []models.CartItem{}}
	if err := s.store.Carts().Save(ctx, &cart); err != nil {
		return models.Cart{}, translate(err, "cart")
	}
	return cart, nil
}

func (s *Carts) view(ctx context.Context, cart models.Cart) (CartView, error) {
	v := CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     make([]CartLine, 0, len(cart.Items)),
		Total:     cartTotal(cart.Items).InexactFloat64(),
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		line := CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  lineTotal(item.Price, item.Quantity).InexactFloat64(),
		}
		p, err := s.store.Products().Get(ctx, item.ProductID)
		switch {
		case err == nil:
			line.Product = &p
		case !errors.Is(err, store.ErrNotFound):
			return CartView{}, translate(err, "product")
		}
		v.Items = append(v.Items, line)
		v.ItemCount += item.Quantity
	}
	return v, nil
}

// Get returns the user's cart, creating an empty one on first access.
func (s *Carts) Get(ctx context.Context, userID primitive.ObjectID) (CartView, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, cart)
}

// sellable loads a product that can currently be put in a cart.
func (s *Carts) sellable(ctx context.Context, productID primitive.ObjectID) (models.Product, error) {
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return models.Product{}, err
	}
	if !p.IsActive {
		return models.Product{}, notFound("product")
	}
	return p, nil
}

// AddItem merges qty into the line for productID and re-captures the sale price.
func (s *Carts) AddItem(ctx context.Context, userID, productID primitive.ObjectID, qty int) (CartView, error) {
	if qty < 1 {
		return CartView{}, invalid("quantity", "quantity must be at least 1")
	}
	p, err := s.sellable(ctx, productID)
	if err != nil {
		return CartView{}, err
	}
	if !p.InStock || qty > p.StockQuantity {
		return CartView{}, insufficientStock(p.ID, p.Title, p.StockQuantity, qty)
	}

	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return CartView{}, err
	}

	price := SalePrice(p)
	if i := cart.ItemIndex(productID); i >= 0 {
		merged := cart.Items[i].Quantity + qty
		if merged > p.StockQuantity {
			return CartView{}, insufficientStock(p.ID, p.Title, p.StockQuantity, merged)
		}
		cart.Items[i].Quantity = merged
		cart.Items[i].Price = price
	} else {
		cart.Items = append(cart.Items, models.CartItem{ProductID: productID, Quantity: qty, Price: price})
	}

	if err := s.store.Carts().Save(ctx, &cart); err != nil {
		return CartView{}, translate(err, "cart")
	}
	s.logger.Debug("cart item added",
		zap.String("user_id", userID.Hex()),
		zap.String("product_id", productID.Hex()),
		zap.Int("quantity", qty),
	)
	return s.view(ctx, cart)
}

// UpdateQuantity sets the quantity of an existing line; zero removes it.
func (s *Carts) UpdateQuantity(ctx context.Context, userID, productID primitive.ObjectID, qty int) (CartView, error) {
	if qty < 0 {
		return CartView{}, invalid("quantity", "quantity must not be negative")
	}
	if qty == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	i := cart.ItemIndex(productID)
	if i < 0 {
		return CartView{}, notFound("cart item")
	}

	p, err := s.sellable(ctx, productID)
	if err != nil {
		return CartView{}, err
	}
	if qty > p.StockQuantity {
		return CartView{}, insufficientStock(p.ID, p.Title, p.StockQuantity, qty)
	}

	cart.Items[i].Quantity = qty
	if err := s.store.Carts().Save(ctx, &cart); err != nil {
		return CartView{}, translate(err, "cart")
	}
	return s.view(ctx, cart)
}

// RemoveItem drops the line for productID. A missing line is not an error.
func (s *Carts) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (CartView, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	if i := cart.ItemIndex(productID); i >= 0 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		if err := s.store.Carts().Save(ctx, &cart); err != nil {
			return CartView{}, translate(err, "cart")
		}
	}
	return s.view(ctx, cart)
}

// Clear empties the cart and keeps the record.
func (s *Carts) Clear(ctx context.Context, userID primitive.ObjectID) (CartView, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	cart.Items = []models.CartItem{}
	if err := s.store.Carts().Save(ctx, &cart); err != nil {
		return CartView{}, translate(err, "cart")
	}
	return s.view(ctx, cart)
}

// Total sums snapshot price times quantity. A user without a cart totals zero.
func (s *Carts) Total(ctx context.Context, userID primitive.ObjectID) (float64, error) {
	cart, err := s.store.Carts().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, translate(err, "cart")
	}
	return cartTotal(cart.Items).InexactFloat64(), nil
}
