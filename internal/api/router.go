package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/plantshop-checkout/internal/api/middleware"
	"github.com/example/plantshop-checkout/internal/auth"
)

func NewRouter(handlers *Handlers, jwtService *auth.JWTService) http.Handler {
	mux := http.NewServeMux()
	authed := middleware.Auth(jwtService)

	// Sessions
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.CreateSession(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Cart
	mux.Handle("/cart", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetCart(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/cart/items", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.AddToCart(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/cart/items/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		productID := strings.TrimPrefix(r.URL.Path, "/cart/items/")
		switch r.Method {
		case http.MethodPatch:
			handlers.ChangeQuantity(w, r, productID)
		case http.MethodDelete:
			handlers.RemoveFromCart(w, r, productID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Coupons
	mux.Handle("/coupons/suggestions", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetCouponSuggestions(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Shipping prefill
	mux.Handle("/shipping-info", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetShippingPrefill(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Checkout sessions
	mux.Handle("/checkout", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.BeginCheckout(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/checkout/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, action := splitCheckoutPath(r.URL.Path)
		if id == "" {
			http.NotFound(w, r)
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			handlers.GetCheckout(w, r, id)
		case action == "" && r.Method == http.MethodDelete:
			handlers.AbandonCheckout(w, r, id)
		case action == "confirm" && r.Method == http.MethodPost:
			handlers.ConfirmOrder(w, r, id)
		case action == "coupon" && r.Method == http.MethodPost:
			handlers.ApplyCoupon(w, r, id)
		case action == "coupon" && r.Method == http.MethodDelete:
			handlers.RemoveCoupon(w, r, id)
		case action == "shipping" && r.Method == http.MethodPost:
			handlers.SubmitShipping(w, r, id)
		case action == "payment" && r.Method == http.MethodPost:
			handlers.SubmitPayment(w, r, id)
		case action == "place" && r.Method == http.MethodPost:
			handlers.PlaceOrder(w, r, id)
		case action == "back" && r.Method == http.MethodPost:
			handlers.StepBack(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Catalog
	mux.Handle("/products", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetProducts(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/products/search", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.SearchProducts(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	return withLogging(mux)
}

// splitCheckoutPath extracts the session id and optional action from
// /checkout/{id}[/{action}].
func splitCheckoutPath(path string) (id, action string) {
	rest := strings.TrimPrefix(path, "/checkout/")
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
