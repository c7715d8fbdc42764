package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/example/plantshop-checkout/internal/api/middleware"
	"github.com/example/plantshop-checkout/internal/auth"
	"github.com/example/plantshop-checkout/internal/cart"
	"github.com/example/plantshop-checkout/internal/catalog"
	"github.com/example/plantshop-checkout/internal/checkout"
	"github.com/example/plantshop-checkout/internal/coupon"
	"github.com/example/plantshop-checkout/internal/session"
	"github.com/example/plantshop-checkout/internal/upstream"
)

// flow bundles the per-user stateful components: the cart store and the
// coupon engine tied to the current checkout.
type flow struct {
	cart    *cart.Store
	coupons *coupon.Engine
}

type Handlers struct {
	jwt          *auth.JWTService
	api          *upstream.Client
	orchestrator *checkout.Orchestrator

	mu    sync.Mutex
	flows map[string]*flow // userID -> flow
}

func NewHandlers(jwtService *auth.JWTService, api *upstream.Client, orchestrator *checkout.Orchestrator) *Handlers {
	return &Handlers{
		jwt:          jwtService,
		api:          api,
		orchestrator: orchestrator,
		flows:        make(map[string]*flow),
	}
}

// getFlow returns the user's flow, creating it on first use.
func (h *Handlers) getFlow(user session.Context) *flow {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.flows[user.UserID]
	if !ok {
		f = &flow{
			cart:    cart.NewStore(h.api, user),
			coupons: coupon.NewEngine(h.api),
		}
		h.flows[user.UserID] = f
	}
	return f
}

// dropFlow discards the user's cart store and coupon engine, the
// explicit teardown that replaces a page reload. The next request
// rebuilds a fresh flow.
func (h *Handlers) dropFlow(user session.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.flows, user.UserID)
}

// Session Handlers

// CreateSession exchanges the legacy identifiers for a bearer token.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var user session.Context
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !user.Valid() {
		respondError(w, "userId and email are required", http.StatusBadRequest)
		return
	}

	token, expiresAt, err := h.jwt.GenerateSessionToken(user)
	if err != nil {
		respondError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"token":     token,
		"expiresAt": expiresAt,
	})
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetSession(r.Context())
	f := h.getFlow(user)

	if err := f.cart.Load(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cart": f.cart.Items()})
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetSession(r.Context())
	f := h.getFlow(user)

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := f.cart.Add(r.Context(), req.ProductID, req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cart": f.cart.Items()})
}

func (h *Handlers) ChangeQuantity(w http.ResponseWriter, r *http.Request, productID string) {
	user, _ := middleware.GetSession(r.Context())
	f := h.getFlow(user)

	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := f.cart.ChangeQuantity(r.Context(), productID, req.Delta); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cart": f.cart.Items()})
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request, productID string) {
	user, _ := middleware.GetSession(r.Context())
	f := h.getFlow(user)

	if err := f.cart.Remove(r.Context(), productID); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cart": f.cart.Items()})
}

// Coupon Handlers

func (h *Handlers) GetCouponSuggestions(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetSession(r.Context())
	f := h.getFlow(user)

	coupons, err := f.coupons.Suggest(r.Context(), user, f.cart.Subtotal())
	if err != nil {
		// Suggestion failure never blocks the flow.
		respondJSON(w, http.StatusOK, []coupon.Coupon{})
		return
	}
	if coupons == nil {
		coupons = []coupon.Coupon{}
	}
	respondJSON(w, http.StatusOK, coupons)
}

// Checkout Handlers

func (h *Handlers) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetSession(r.Context())
	f := h.getFlow(user)

	if err := f.cart.Load(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.orchestrator.Begin(r.Context(), user, f.cart.Items())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.sessionView(sess))
}

func (h *Handlers) GetCheckout(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.sessionView(sess))
}

func (h *Handlers) ConfirmOrder(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}
	f := h.getFlow(sess.User)

	// Guard against the live cart, not the stale snapshot.
	if err := f.cart.Load(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	if err := h.orchestrator.ConfirmOrder(r.Context(), sess, f.cart.Items()); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.sessionView(sess))
}

func (h *Handlers) ApplyCoupon(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}
	f := h.getFlow(sess.User)

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Validate against the session's snapshot, not the live cart, so the
	// apply-time subtotal matches the summary the user is looking at.
	applied, err := f.coupons.Apply(r.Context(), sess.User, req.Code, sess.Subtotal())
	if err != nil {
		// A failed re-apply never leaves a stale discount behind.
		_ = h.orchestrator.ClearCoupon(r.Context(), sess)
		writeError(w, err)
		return
	}
	if err := h.orchestrator.SetCoupon(r.Context(), sess, applied); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.sessionView(sess))
}

func (h *Handlers) RemoveCoupon(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}
	f := h.getFlow(sess.User)

	f.coupons.Remove()
	if err := h.orchestrator.ClearCoupon(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.sessionView(sess))
}

func (h *Handlers) SubmitShipping(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}

	var info checkout.ShippingInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if info.ShippingOption == "" {
		info.ShippingOption = checkout.ShippingStandard
	}

	if err := h.orchestrator.SubmitShipping(r.Context(), sess, info); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.sessionView(sess))
}

// GetShippingPrefill returns the shipping form saved on a previous
// checkout, if any.
func (h *Handlers) GetShippingPrefill(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetSession(r.Context())

	info, err := h.api.FetchShippingInfo(r.Context(), user)
	if err != nil {
		// Prefill is a non-critical background read; degrade to empty.
		respondJSON(w, http.StatusOK, map[string]any{})
		return
	}
	if info == nil {
		respondJSON(w, http.StatusOK, map[string]any{})
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (h *Handlers) SubmitPayment(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}

	var rec checkout.PaymentRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.orchestrator.SubmitPayment(r.Context(), sess, rec); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.sessionView(sess))
}

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}

	var req struct {
		Agree bool `json:"agree"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.orchestrator.PlaceOrder(r.Context(), sess, req.Agree); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.sessionView(sess))
}

func (h *Handlers) StepBack(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}

	if err := h.orchestrator.Back(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.sessionView(sess))
}

func (h *Handlers) AbandonCheckout(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.loadSession(w, r, sessionID)
	if !ok {
		return
	}

	if err := h.orchestrator.Abandon(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}
	h.dropFlow(sess.User)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Checkout abandoned"})
}

// Catalog Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.api.ListProducts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	sel := catalog.Selection{Query: q.Get("q")}
	sel.SetCategory(q.Get("category"))
	for _, name := range catalog.FacetSchema(sel.Category) {
		sel.SetFacet(name, q.Get(name))
	}

	filtered := catalog.Filter(products, sel)
	if filtered == nil {
		filtered = []catalog.Product{}
	}
	respondJSON(w, http.StatusOK, filtered)
}

func (h *Handlers) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.api.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

// helpers

// loadSession fetches the checkout session and enforces that it belongs
// to the authenticated user.
func (h *Handlers) loadSession(w http.ResponseWriter, r *http.Request, sessionID string) (*checkout.Session, bool) {
	user, _ := middleware.GetSession(r.Context())

	sess, err := h.orchestrator.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if sess.User.UserID != user.UserID {
		respondError(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return sess, true
}

func (h *Handlers) sessionView(sess *checkout.Session) map[string]any {
	return map[string]any{
		"session": sess,
		"summary": h.orchestrator.Summary(sess),
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// writeError maps the error taxonomy onto HTTP statuses, keeping the
// upstream's message verbatim where one exists.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrAuthRequired):
		respondError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, cart.ErrItemNotFound), errors.Is(err, checkout.ErrSessionNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, checkout.ErrCannotProceed),
		errors.Is(err, checkout.ErrSessionComplete):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrBelowMinimum),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrEmptyCode),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, upstream.ErrRemoteUnavailable):
		respondError(w, err.Error(), http.StatusBadGateway)
	default:
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) {
			// Upstream rejection surfaced verbatim.
			respondError(w, apiErr.Message, http.StatusBadRequest)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
	}
}
