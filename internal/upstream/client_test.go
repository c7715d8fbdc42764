package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/plantshop-checkout/internal/checkout"
	"github.com/example/plantshop-checkout/internal/session"
)

func testUser() session.Context {
	return session.Context{UserID: "user-123", Email: "user@example.com"}
}

func TestClient_FetchCart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart/user-123", r.URL.Path)
		_, _ = w.Write([]byte(`{"cart": [
			{"product_id": "p1", "name": "Tulsi", "price": 120.5, "quantity": 2, "stock": 5}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	items, err := client.FetchCart(context.Background(), testUser())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, 120.5, items[0].UnitPrice)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 5, items[0].Stock)
}

func TestClient_UpdateQuantity_LegacyBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/cart", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.UpdateQuantity(context.Background(), testUser(), "p1", 3)

	require.NoError(t, err)
	assert.Equal(t, "user-123", got["userId"])
	assert.Equal(t, "user@example.com", got["email"])
	assert.Equal(t, "p1", got["product_id"])
	assert.Equal(t, float64(3), got["quantity"])
}

func TestClient_ErrorMessageKeptVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Minimum order amount is ₹500"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.ApplyCoupon(context.Background(), testUser(), "SAVE10", 100)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Minimum order amount is ₹500", apiErr.Message)
	assert.NotErrorIs(t, err, ErrRemoteUnavailable, "client errors are not transport failures")
}

func TestClient_ServerErrorIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "boom"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.FetchCart(context.Background(), testUser())

	assert.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewClient(srv.URL)
	err := client.AddItem(context.Background(), testUser(), "p1", 1)

	assert.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestClient_FetchShippingInfo_NotFoundMeansNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "No shipping info found"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	info, err := client.FetchShippingInfo(context.Background(), testUser())

	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestClient_FetchShippingInfo_Prefill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shipping-info/user-123", r.URL.Path)
		_, _ = w.Write([]byte(`{"fullName": "Asha Rao", "address": "12 Garden Lane", "city": "Pune", "postalCode": "411001", "shippingOption": "express"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	info, err := client.FetchShippingInfo(context.Background(), testUser())

	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Asha Rao", info.FullName)
	assert.Equal(t, checkout.ShippingExpress, info.ShippingOption)
}

func TestClient_PlaceOrder(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/place", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.PlaceOrder(context.Background(), testUser(), checkout.ShippingInfo{
		FullName: "Asha Rao", Address: "12 Garden Lane", City: "Pune",
		PostalCode: "411001", ShippingOption: checkout.ShippingStandard,
	})

	require.NoError(t, err)
	assert.Equal(t, "user-123", got["userId"])
	shipping, ok := got["shippingInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Asha Rao", shipping["fullName"])
}

func TestClient_SuggestCoupons_QueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coupons/suggestions", r.URL.Path)
		assert.Equal(t, "user@example.com", r.URL.Query().Get("userEmail"))
		assert.Equal(t, "250.00", r.URL.Query().Get("orderTotal"))
		_, _ = w.Write([]byte(`[{"code": "SAVE10", "discountType": "percentage", "discountValue": 10}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	coupons, err := client.SuggestCoupons(context.Background(), testUser(), 250)

	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, "SAVE10", coupons[0].Code)
}

func TestClient_ListProducts_FacetsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id": "p1", "name": "Tulsi", "category": "plant", "price": 120, "stock": 5,
			 "filters": {"light": "Low", "petSafe": true}}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	products, err := client.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Low", products[0].Facets["light"])
	assert.Equal(t, true, products[0].Facets["petSafe"])
}
