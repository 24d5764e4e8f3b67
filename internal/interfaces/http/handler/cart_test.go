package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpenform/storefront/internal/interfaces/http/middleware"
)

func TestCartHandler_GetCart_CreatesAndResumes(t *testing.T) {
	env := newCartTestEnv(t)
	sessionID := uuid.NewString()

	w := env.request(t, http.MethodGet, "/api/v1/cart", sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	require.True(t, resp.Success)
	data := decodeCartData(t, resp)
	require.NotNil(t, data.Cart)
	assert.Equal(t, "cart_1", data.Cart.ID)
	assert.Equal(t, "remote-guest", data.Mode)
	assert.Equal(t, sessionID, w.Header().Get(middleware.SessionHeaderKey))

	// same session resumes the same cart
	w = env.request(t, http.MethodGet, "/api/v1/cart", sessionID, nil)
	data = decodeCartData(t, decodeResponse(t, w))
	assert.Equal(t, "cart_1", data.Cart.ID)

	// a different session gets its own cart
	w = env.request(t, http.MethodGet, "/api/v1/cart", uuid.NewString(), nil)
	data = decodeCartData(t, decodeResponse(t, w))
	assert.Equal(t, "cart_2", data.Cart.ID)
}

func TestCartHandler_GetCart_IssuesSessionWhenMissing(t *testing.T) {
	env := newCartTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	issued := w.Header().Get(middleware.SessionHeaderKey)
	require.NotEmpty(t, issued)
	_, err := uuid.Parse(issued)
	assert.NoError(t, err)
}

func TestCartHandler_AddItem(t *testing.T) {
	env := newCartTestEnv(t)
	sessionID := uuid.NewString()

	w := env.request(t, http.MethodPost, "/api/v1/cart/items", sessionID, AddItemRequest{
		VariantID: "variant_shirt",
		Quantity:  2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeCartData(t, decodeResponse(t, w))
	require.Len(t, data.Cart.Items, 1)
	assert.Equal(t, "variant_shirt", data.Cart.Items[0].VariantID)
	assert.Equal(t, int64(2), data.Cart.Items[0].Quantity)
	assert.Equal(t, int64(2), data.ItemCount)
}

func TestCartHandler_AddItem_ValidationError(t *testing.T) {
	env := newCartTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/cart/items", uuid.NewString(), map[string]any{
		"quantity": 0,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Details []struct {
				Field string `json:"field"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "ERR_VALIDATION", resp.Error.Code)
	require.NotEmpty(t, resp.Error.Details)

	fields := make([]string, 0, len(resp.Error.Details))
	for _, d := range resp.Error.Details {
		fields = append(fields, d.Field)
	}
	assert.Contains(t, fields, "variant_id")
}

func TestCartHandler_AddLocalItem_RejectedOnRemoteCart(t *testing.T) {
	env := newCartTestEnv(t)
	sessionID := uuid.NewString()

	// initialize a remote cart first
	w := env.request(t, http.MethodGet, "/api/v1/cart", sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/cart/local-items", sessionID, AddLocalItemRequest{
		ProductID: "prod_gift_card",
		Title:     "Gift card",
		UnitPrice: "50.00",
		Quantity:  1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERR_LOCAL_MODE_ONLY", resp.Error.Code)
}

func TestCartHandler_AddLocalItem_InvalidPrice(t *testing.T) {
	env := newCartTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/cart/local-items", uuid.NewString(), AddLocalItemRequest{
		ProductID: "prod_gift_card",
		Title:     "Gift card",
		UnitPrice: "not-a-number",
		Quantity:  1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartHandler_UpdateAndRemoveItem(t *testing.T) {
	env := newCartTestEnv(t)
	sessionID := uuid.NewString()

	w := env.request(t, http.MethodPost, "/api/v1/cart/items", sessionID, AddItemRequest{
		VariantID: "variant_shirt",
		Quantity:  1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeCartData(t, decodeResponse(t, w))
	itemID := data.Cart.Items[0].ID

	w = env.request(t, http.MethodPut, "/api/v1/cart/items/"+itemID, sessionID, UpdateItemRequest{Quantity: 5})
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeCartData(t, decodeResponse(t, w))
	assert.Equal(t, int64(5), data.Cart.Items[0].Quantity)

	w = env.request(t, http.MethodDelete, "/api/v1/cart/items/"+itemID, sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeCartData(t, decodeResponse(t, w))
	assert.Empty(t, data.Cart.Items)
}

func TestCartHandler_UpdateCart(t *testing.T) {
	env := newCartTestEnv(t)
	sessionID := uuid.NewString()
	email := "anna@example.ch"

	w := env.request(t, http.MethodPut, "/api/v1/cart", sessionID, UpdateCartRequest{
		Email: &email,
		ShippingAddress: &AddressRequest{
			FirstName:   "Anna",
			City:        "Zürich",
			PostalCode:  "8001",
			CountryCode: "ch",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeCartData(t, decodeResponse(t, w))
	assert.Equal(t, email, data.Cart.Email)
	require.NotNil(t, data.Cart.ShippingAddress)
	assert.Equal(t, "Zürich", data.Cart.ShippingAddress.City)
}

func TestCartHandler_UpdateCart_RejectsBadPostalCode(t *testing.T) {
	env := newCartTestEnv(t)

	w := env.request(t, http.MethodPut, "/api/v1/cart", uuid.NewString(), UpdateCartRequest{
		ShippingAddress: &AddressRequest{PostalCode: "80x1"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartHandler_ShippingFlow(t *testing.T) {
	env := newCartTestEnv(t)
	sessionID := uuid.NewString()

	w := env.request(t, http.MethodGet, "/api/v1/cart/shipping-options", sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/cart/shipping-methods", sessionID, AddShippingMethodRequest{
		OptionID: "so_post",
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeCartData(t, decodeResponse(t, w))
	require.NotNil(t, data.Cart.ShippingMethod)
	assert.Equal(t, "so_post", data.Cart.ShippingMethod.ShippingOptionID)
}

func TestCartHandler_Promotions(t *testing.T) {
	env := newCartTestEnv(t)
	sessionID := uuid.NewString()

	w := env.request(t, http.MethodPost, "/api/v1/cart/promotions", sessionID, PromotionRequest{Code: "SUMMER10"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Applied bool   `json:"applied"`
			Code    string `json:"code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Applied)
	assert.Equal(t, "SUMMER10", resp.Data.Code)

	// unrecognized code is a rejection result, not an HTTP error
	w = env.request(t, http.MethodPost, "/api/v1/cart/promotions", sessionID, PromotionRequest{Code: "NOPE"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Applied)
}

func TestCartHandler_Promotions_RejectsMalformedCode(t *testing.T) {
	env := newCartTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/cart/promotions", uuid.NewString(), PromotionRequest{Code: "has space"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartHandler_PaymentSession_EmptyBody(t *testing.T) {
	env := newCartTestEnv(t)
	sessionID := uuid.NewString()

	w := env.request(t, http.MethodPost, "/api/v1/cart/payment-session", sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			ProviderID   string `json:"provider_id"`
			ClientSecret string `json:"client_secret"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pp_stripe_stripe", resp.Data.ProviderID)
	assert.Equal(t, "pi_secret_123", resp.Data.ClientSecret)
}

func TestCartHandler_CompleteCart(t *testing.T) {
	env := newCartTestEnv(t)
	sessionID := uuid.NewString()

	w := env.request(t, http.MethodPost, "/api/v1/cart/items", sessionID, AddItemRequest{
		VariantID: "variant_shirt",
		Quantity:  1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/cart/complete", sessionID, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			ID        string `json:"id"`
			DisplayID int64  `json:"display_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "order_1", resp.Data.ID)
	assert.Equal(t, int64(1001), resp.Data.DisplayID)
}
