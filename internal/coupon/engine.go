package coupon

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/plantshop-checkout/internal/session"
)

var (
	ErrInvalidCoupon = errors.New("invalid coupon code")
	ErrBelowMinimum  = errors.New("order subtotal below coupon minimum")
	ErrExpired       = errors.New("coupon expired")
	ErrEmptyCode     = errors.New("coupon code is required")
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon mirrors the commerce API's coupon document. Codes are
// case-insensitive and stored upper-case.
type Coupon struct {
	Code           string       `json:"code"`
	DiscountType   DiscountType `json:"discountType"`
	DiscountValue  float64      `json:"discountValue"`
	MinOrderAmount float64      `json:"minOrderAmount"`
	ExpirationDate time.Time    `json:"expirationDate"`
	Uses           int          `json:"uses"`
	MaxUses        int          `json:"maxUses"`
}

// Expired reports whether the coupon is past its expiration at now.
func (c Coupon) Expired(now time.Time) bool {
	return !c.ExpirationDate.After(now)
}

// Exhausted reports whether the usage cap is reached. MaxUses of zero
// means unlimited.
func (c Coupon) Exhausted() bool {
	return c.MaxUses > 0 && c.Uses >= c.MaxUses
}

// Discount computes the rupee discount this coupon yields on a
// subtotal, clamped so it never exceeds the subtotal.
func (c Coupon) Discount(subtotal float64) float64 {
	var d float64
	switch c.DiscountType {
	case DiscountPercentage:
		d = subtotal * c.DiscountValue / 100
	default:
		d = c.DiscountValue
	}
	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		d = 0
	}
	return d
}

// ApplyResult is the server's response to a coupon application.
type ApplyResult struct {
	Discount float64 `json:"discount"`
	Coupon   Coupon  `json:"coupon"`
	Message  string  `json:"message"`
}

// Applied is the at-most-one coupon in effect for a checkout session.
type Applied struct {
	Coupon   Coupon
	Discount float64
}

// Remote is the slice of the commerce API the engine needs.
type Remote interface {
	SuggestCoupons(ctx context.Context, user session.Context, subtotal float64) ([]Coupon, error)
	ApplyCoupon(ctx context.Context, user session.Context, code string, subtotal float64) (*ApplyResult, error)
}

// Engine validates and applies coupon codes for a single checkout
// session. The server stays authoritative for validation; the engine
// enforces the client-side clamps and the clear-on-failure rule.
//
// One engine is shared across a user's concurrent requests, so the
// applied state is guarded by mu and mutations are serialized.
type Engine struct {
	remote Remote
	now    func() time.Time

	mu      sync.Mutex
	applied *Applied
}

func NewEngine(remote Remote) *Engine {
	return &Engine{remote: remote, now: time.Now}
}

// Suggest returns coupons usable at the given subtotal, most valuable
// first. A flat coupon and a percentage coupon only compare through the
// discount they would yield right now, so ordering uses the computed
// amount; ties break by soonest expiration. Failures are non-fatal for
// the flow, callers show an empty list.
func (e *Engine) Suggest(ctx context.Context, user session.Context, subtotal float64) ([]Coupon, error) {
	coupons, err := e.remote.SuggestCoupons(ctx, user, subtotal)
	if err != nil {
		return nil, fmt.Errorf("fetching coupon suggestions: %w", err)
	}

	now := e.now()
	eligible := coupons[:0:0]
	for _, c := range coupons {
		if c.Expired(now) || c.Exhausted() || subtotal < c.MinOrderAmount {
			continue
		}
		eligible = append(eligible, c)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		di, dj := eligible[i].Discount(subtotal), eligible[j].Discount(subtotal)
		if di != dj {
			return di > dj
		}
		return eligible[i].ExpirationDate.Before(eligible[j].ExpirationDate)
	})
	return eligible, nil
}

// Apply submits a code for the current subtotal. On success the
// returned discount is clamped to the subtotal and recorded as the
// session's applied coupon. On any failure a previously applied coupon
// is cleared, so a stale discount never survives a failed re-apply.
func (e *Engine) Apply(ctx context.Context, user session.Context, code string, subtotal float64) (Applied, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		e.applied = nil
		return Applied{}, ErrEmptyCode
	}

	result, err := e.remote.ApplyCoupon(ctx, user, code, subtotal)
	if err != nil {
		e.applied = nil
		return Applied{}, classifyApplyError(err)
	}

	discount := result.Discount
	if discount > subtotal {
		discount = subtotal
	}

	applied := Applied{Coupon: result.Coupon, Discount: discount}
	e.applied = &applied
	return applied, nil
}

// Remove clears the applied coupon. Idempotent, never fails.
func (e *Engine) Remove() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applied = nil
}

// Applied returns the coupon currently in effect, if any.
func (e *Engine) Applied() (Applied, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applied == nil {
		return Applied{}, false
	}
	return *e.applied, true
}

// statusError is satisfied by upstream.APIError without importing it
// here (the upstream package already depends on this one for types).
type statusError interface {
	error
	HTTPStatus() int
}

// classifyApplyError maps the upstream's rejection messages onto the
// local error taxonomy, keeping the original text attached.
func classifyApplyError(err error) error {
	var apiErr statusError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatus() >= 500 {
		return err
	}

	msg := strings.ToLower(apiErr.Error())
	switch {
	case strings.Contains(msg, "expired"):
		return fmt.Errorf("%w: %s", ErrExpired, apiErr.Error())
	case strings.Contains(msg, "minimum order"):
		return fmt.Errorf("%w: %s", ErrBelowMinimum, apiErr.Error())
	default:
		return fmt.Errorf("%w: %s", ErrInvalidCoupon, apiErr.Error())
	}
}
