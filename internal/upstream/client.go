package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/example/plantshop-checkout/internal/cart"
	"github.com/example/plantshop-checkout/internal/catalog"
	"github.com/example/plantshop-checkout/internal/checkout"
	"github.com/example/plantshop-checkout/internal/coupon"
	"github.com/example/plantshop-checkout/internal/session"
)

// ErrRemoteUnavailable marks transport failures and server-side errors
// from the commerce API.
var ErrRemoteUnavailable = errors.New("commerce API unavailable")

// APIError carries the upstream's error message verbatim so the view
// layer can surface it unchanged.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("commerce API returned status %d", e.Status)
}

// HTTPStatus returns the upstream response status.
func (e *APIError) HTTPStatus() int { return e.Status }

// Server failures are indistinguishable from transport failures for the
// caller; client errors (4xx) carry a message the caller may inspect.
func (e *APIError) Unwrap() error {
	if e.Status >= 500 {
		return ErrRemoteUnavailable
	}
	return nil
}

// Client talks to the remote commerce API. The API authenticates by
// plain userId/email request fields; that scheme is kept on this wire
// only, for compatibility (the gateway's own surface uses bearer
// tokens).
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// doJSON issues a request with an optional JSON body and decodes a JSON
// response into out (when out is non-nil). Non-2xx responses become
// *APIError with the server's error field.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(data)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			if payload.Error != "" {
				apiErr.Message = payload.Error
			} else {
				apiErr.Message = payload.Message
			}
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrRemoteUnavailable, err)
		}
	}
	return nil
}

// cartMutation is the legacy body shape shared by the cart endpoints.
type cartMutation struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity,omitempty"`
}

// FetchCart returns the authoritative cart snapshot for the user.
func (c *Client) FetchCart(ctx context.Context, user session.Context) ([]cart.LineItem, error) {
	var out struct {
		Cart []cart.LineItem `json:"cart"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/cart/"+url.PathEscape(user.UserID), nil, &out); err != nil {
		return nil, err
	}
	return out.Cart, nil
}

// UpdateQuantity sets the absolute quantity of a line item.
func (c *Client) UpdateQuantity(ctx context.Context, user session.Context, productID string, quantity int) error {
	body := cartMutation{UserID: user.UserID, Email: user.Email, ProductID: productID, Quantity: quantity}
	return c.doJSON(ctx, http.MethodPut, "/cart", body, nil)
}

// AddItem adds a product to the cart.
func (c *Client) AddItem(ctx context.Context, user session.Context, productID string, quantity int) error {
	body := cartMutation{UserID: user.UserID, Email: user.Email, ProductID: productID, Quantity: quantity}
	return c.doJSON(ctx, http.MethodPost, "/cart", body, nil)
}

// RemoveItem deletes a line item from the cart.
func (c *Client) RemoveItem(ctx context.Context, user session.Context, productID string) error {
	body := cartMutation{UserID: user.UserID, Email: user.Email, ProductID: productID}
	return c.doJSON(ctx, http.MethodDelete, "/cart", body, nil)
}

// SuggestCoupons lists coupons the server considers applicable to the
// given subtotal.
func (c *Client) SuggestCoupons(ctx context.Context, user session.Context, subtotal float64) ([]coupon.Coupon, error) {
	q := url.Values{}
	q.Set("userEmail", user.Email)
	q.Set("orderTotal", strconv.FormatFloat(subtotal, 'f', 2, 64))

	var out []coupon.Coupon
	if err := c.doJSON(ctx, http.MethodGet, "/coupons/suggestions?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyCoupon validates a code against the current subtotal.
func (c *Client) ApplyCoupon(ctx context.Context, user session.Context, code string, subtotal float64) (*coupon.ApplyResult, error) {
	body := struct {
		Code       string  `json:"code"`
		UserID     string  `json:"userId"`
		UserEmail  string  `json:"userEmail"`
		OrderTotal float64 `json:"orderTotal"`
	}{code, user.UserID, user.Email, subtotal}

	var out coupon.ApplyResult
	if err := c.doJSON(ctx, http.MethodPost, "/coupons/apply", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveShippingInfo persists the shipping form for the user.
func (c *Client) SaveShippingInfo(ctx context.Context, user session.Context, info checkout.ShippingInfo) error {
	body := struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
		checkout.ShippingInfo
	}{user.UserID, user.Email, info}
	return c.doJSON(ctx, http.MethodPost, "/shipping-info", body, nil)
}

// FetchShippingInfo returns the previously saved shipping form, or nil
// when the user has none yet.
func (c *Client) FetchShippingInfo(ctx context.Context, user session.Context) (*checkout.ShippingInfo, error) {
	var out checkout.ShippingInfo
	err := c.doJSON(ctx, http.MethodGet, "/shipping-info/"+url.PathEscape(user.UserID), nil, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// SavePayment records the payment details as an audit entry. The
// gateway never settles payments itself.
func (c *Client) SavePayment(ctx context.Context, user session.Context, rec checkout.PaymentRecord) error {
	body := struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
		checkout.PaymentRecord
	}{user.UserID, user.Email, rec}
	return c.doJSON(ctx, http.MethodPost, "/payment", body, nil)
}

// PlaceOrder submits the final order. The backend clears the cart on
// success; the gateway observes that on the next FetchCart.
func (c *Client) PlaceOrder(ctx context.Context, user session.Context, info checkout.ShippingInfo) error {
	body := struct {
		UserID       string                `json:"userId"`
		Email        string                `json:"email"`
		ShippingInfo checkout.ShippingInfo `json:"shippingInfo"`
	}{user.UserID, user.Email, info}
	return c.doJSON(ctx, http.MethodPost, "/orders/place", body, nil)
}

// ListProducts fetches the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	if err := c.doJSON(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchProducts fetches name-match suggestions for a query.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]catalog.Product, error) {
	q := url.Values{}
	q.Set("q", query)
	var out []catalog.Product
	if err := c.doJSON(ctx, http.MethodGet, "/products/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
