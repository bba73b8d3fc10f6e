// Package memstore keeps every collection in process memory. It backs the
// test suites and the STORE=memory mode; state lives as long as the process.
package memstore

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

type txKey struct{}

// docKey names one document across every collection for the undo log.
type docKey struct {
	coll string
	id   primitive.ObjectID
}

type undoEntry struct {
	key     docKey
	prev    uint64
	version uint64
	restore func()
}

// txLog collects the writes made through one transaction's ctx.
type txLog struct {
	entries []undoEntry
}

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	products   map[primitive.ObjectID]models.Product
	categories map[primitive.ObjectID]models.Category
	carts      map[primitive.ObjectID]models.Cart
	orders     map[primitive.ObjectID]models.Order
	reviews    map[primitive.ObjectID]models.Review
	wishlists  map[primitive.ObjectID]models.Wishlist

	// versions is bumped on every write; rollback only restores documents
	// still carrying the version the transaction wrote.
	seq      uint64
	versions map[docKey]uint64

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		products:   map[primitive.ObjectID]models.Product{},
		categories: map[primitive.ObjectID]models.Category{},
		carts:      map[primitive.ObjectID]models.Cart{},
		orders:     map[primitive.ObjectID]models.Order{},
		reviews:    map[primitive.ObjectID]models.Review{},
		wishlists:  map[primitive.ObjectID]models.Wishlist{},
		versions:   map[docKey]uint64{},
		now:        time.Now,
	}
}

func (s *Store) Products() store.Products     { return productRepo{s} }
func (s *Store) Categories() store.Categories { return categoryRepo{s} }
func (s *Store) Carts() store.Carts           { return cartRepo{s} }
func (s *Store) Orders() store.Orders         { return orderRepo{s} }
func (s *Store) Reviews() store.Reviews       { return reviewRepo{s} }
func (s *Store) Wishlists() store.Wishlists   { return wishlistRepo{s} }

func (s *Store) Ping(context.Context) error { return nil }

// WithTransaction serializes transactions. When fn fails, only the writes made
// through the transaction's ctx are undone; a document written from outside
// the transaction after it was touched keeps the outside write.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	undo := &txLog{}
	if err := fn(context.WithValue(ctx, txKey{}, undo)); err != nil {
		s.rollback(undo)
		return err
	}
	return nil
}

func (s *Store) rollback(undo *txLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(undo.entries) - 1; i >= 0; i-- {
		e := undo.entries[i]
		if s.versions[e.key] != e.version {
			continue
		}
		e.restore()
		s.versions[e.key] = e.prev
	}
}

// track must be called with s.mu held, before the document at id in m is
// replaced or deleted.
func track[T any](ctx context.Context, s *Store, coll string, m map[primitive.ObjectID]T, id primitive.ObjectID, clone func(T) T) {
	key := docKey{coll: coll, id: id}
	prev := s.versions[key]
	s.seq++
	s.versions[key] = s.seq

	undo, _ := ctx.Value(txKey{}).(*txLog)
	if undo == nil {
		return
	}
	old, existed := m[id]
	if existed {
		old = clone(old)
	}
	undo.entries = append(undo.entries, undoEntry{
		key:     key,
		prev:    prev,
		version: s.seq,
		restore: func() {
			if existed {
				m[id] = old
			} else {
				delete(m, id)
			}
		},
	})
}

func same[T any](v T) T { return v }

func copyProduct(p models.Product) models.Product {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	if p.Category != nil {
		p.Category = append(models.StringList{}, p.Category...)
	}
	if p.DiscountPrice != nil {
		v := *p.DiscountPrice
		p.DiscountPrice = &v
	}
	return p
}

func copyCart(c models.Cart) models.Cart {
	c.Items = append([]models.CartItem{}, c.Items...)
	return c
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem{}, o.Items...)
	return o
}

func copyWishlist(w models.Wishlist) models.Wishlist {
	w.Items = append([]models.WishlistItem{}, w.Items...)
	return w
}

func paginate[T any](items []T, page store.Page) []T {
	if page.Limit <= 0 {
		return items
	}
	skip := page.Skip()
	if skip < 0 || skip >= int64(len(items)) {
		return []T{}
	}
	end := skip + page.Limit
	if end < skip || end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[skip:end]
}
