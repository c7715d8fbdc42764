package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/plantshop-checkout/internal/session"
)

var (
	ErrAuthRequired      = errors.New("login required")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotFound      = errors.New("item not found in cart")
	ErrInvalidProduct    = errors.New("product_id is required")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrAlreadyBound      = errors.New("cart is already bound to a user")
)

// LineItem is one product entry in the cart, mirroring the commerce
// API's wire shape.
type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Stock     int     `json:"stock"`
}

// Remote is the slice of the commerce API the cart store needs.
type Remote interface {
	FetchCart(ctx context.Context, user session.Context) ([]LineItem, error)
	UpdateQuantity(ctx context.Context, user session.Context, productID string, quantity int) error
	AddItem(ctx context.Context, user session.Context, productID string, quantity int) error
	RemoveItem(ctx context.Context, user session.Context, productID string) error
}

// pendingAdd is an add-to-cart captured before login, replayed exactly
// once after the flow gains credentials.
type pendingAdd struct {
	ProductID string
	Quantity  int
}

// Store is the single source of truth for one user's cart within a
// flow. The remote store stays authoritative: quantity updates refetch
// the server state instead of trusting local arithmetic, since price
// and stock can change server-side between actions.
//
// All mutations are serialized through mu so no two mutating calls for
// the same cart are ever in flight concurrently.
type Store struct {
	remote Remote

	mu      sync.Mutex
	user    session.Context
	items   []LineItem
	pending *pendingAdd
}

func NewStore(remote Remote, user session.Context) *Store {
	return &Store{remote: remote, user: user}
}

// Bind attaches credentials to a cart that started anonymous. A flow's
// identity is set at most once.
func (s *Store) Bind(user session.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user.Valid() {
		return ErrAlreadyBound
	}
	s.user = user
	return nil
}

// User returns the identity snapshot this store was bound with.
func (s *Store) User() session.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Items returns a copy of the current snapshot.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Subtotal sums unitPrice x quantity over the snapshot.
func (s *Store) Subtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, item := range s.items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// Load replaces the local snapshot with the remote state. On failure
// the last-known-good snapshot is kept and the error surfaced.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.user.Valid() {
		return ErrAuthRequired
	}

	items, err := s.remote.FetchCart(ctx, s.user)
	if err != nil {
		return fmt.Errorf("loading cart: %w", err)
	}
	s.items = items
	return nil
}

// ChangeQuantity applies a signed delta to a line item. A resulting
// quantity of zero or less removes the item. Increases are guarded
// against available stock before any network call.
func (s *Store) ChangeQuantity(ctx context.Context, productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.user.Valid() {
		return ErrAuthRequired
	}
	if productID == "" {
		return ErrInvalidProduct
	}

	idx := s.indexOf(productID)
	if idx < 0 {
		return ErrItemNotFound
	}
	item := s.items[idx]

	newQuantity := item.Quantity + delta
	if newQuantity <= 0 {
		return s.removeLocked(ctx, productID)
	}
	if delta > 0 && newQuantity > item.Stock {
		return fmt.Errorf("%w: only %d in stock", ErrInsufficientStock, item.Stock)
	}

	if err := s.remote.UpdateQuantity(ctx, s.user, productID, newQuantity); err != nil {
		return fmt.Errorf("updating quantity: %w", err)
	}
	return s.reloadLocked(ctx)
}

// Remove deletes a line item. On success the item is dropped locally
// without a refetch; the delete is idempotent server-side.
func (s *Store) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.user.Valid() {
		return ErrAuthRequired
	}
	return s.removeLocked(ctx, productID)
}

func (s *Store) removeLocked(ctx context.Context, productID string) error {
	idx := s.indexOf(productID)
	if idx < 0 {
		return ErrItemNotFound
	}
	if err := s.remote.RemoveItem(ctx, s.user, productID); err != nil {
		return fmt.Errorf("removing item: %w", err)
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

// Add puts a product in the cart and refreshes the snapshot. When the
// flow is unauthenticated the caller is expected to DeferAdd and prompt
// login instead.
func (s *Store) Add(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(ctx, productID, quantity)
}

func (s *Store) addLocked(ctx context.Context, productID string, quantity int) error {
	if !s.user.Valid() {
		return ErrAuthRequired
	}
	if productID == "" {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	if err := s.remote.AddItem(ctx, s.user, productID, quantity); err != nil {
		return fmt.Errorf("adding item: %w", err)
	}
	return s.reloadLocked(ctx)
}

// DeferAdd records an add intent for an unauthenticated flow. A second
// deferred add replaces the first; only the most recent intent is
// replayed.
func (s *Store) DeferAdd(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &pendingAdd{ProductID: productID, Quantity: quantity}
}

// ReplayPending performs the deferred add, at most once: the intent is
// consumed before the attempt, so a failed replay is reported but never
// retried implicitly. Returns false when there was nothing to replay.
func (s *Store) ReplayPending(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return false, nil
	}
	intent := *s.pending
	s.pending = nil

	if err := s.addLocked(ctx, intent.ProductID, intent.Quantity); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Store) reloadLocked(ctx context.Context) error {
	items, err := s.remote.FetchCart(ctx, s.user)
	if err != nil {
		return fmt.Errorf("reloading cart: %w", err)
	}
	s.items = items
	return nil
}

func (s *Store) indexOf(productID string) int {
	for i, item := range s.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
