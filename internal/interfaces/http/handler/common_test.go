package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cartapp "github.com/alpenform/storefront/internal/application/cart"
	"github.com/alpenform/storefront/internal/domain/cart"
	"github.com/alpenform/storefront/internal/domain/region"
	"github.com/alpenform/storefront/internal/infrastructure/commerce"
	"github.com/alpenform/storefront/internal/infrastructure/config"
	"github.com/alpenform/storefront/internal/interfaces/http/dto"
	"github.com/alpenform/storefront/internal/interfaces/http/middleware"
	"github.com/alpenform/storefront/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func testStoreConfig() config.StoreConfig {
	return config.StoreConfig{
		PrimaryCurrency:        "chf",
		TaxRate:                decimal.NewFromFloat(0.081),
		FreeShippingThreshold:  decimal.NewFromInt(69),
		StandardShippingAmount: decimal.NewFromFloat(7.90),
		ExpressShippingAmount:  decimal.NewFromFloat(14.90),
		PaymentProvider:        "pp_stripe_stripe",
	}
}

// stubState is an in-memory session state repository
type stubState struct {
	mu      sync.Mutex
	cartIDs map[string]string
	locals  map[string]*cart.Cart
	regions map[string]string
}

func newStubState() *stubState {
	return &stubState{
		cartIDs: make(map[string]string),
		locals:  make(map[string]*cart.Cart),
		regions: make(map[string]string),
	}
}

func (s *stubState) CartID(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartIDs[sessionID], nil
}

func (s *stubState) SetCartID(_ context.Context, sessionID, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartIDs[sessionID] = cartID
	return nil
}

func (s *stubState) ClearCartID(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cartIDs, sessionID)
	return nil
}

func (s *stubState) LocalCart(_ context.Context, sessionID, currencyCode string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.locals[sessionID]; ok {
		return c, nil
	}
	return cart.NewLocalCart(currencyCode), nil
}

func (s *stubState) SaveLocalCart(_ context.Context, sessionID string, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locals[sessionID] = c
	return nil
}

func (s *stubState) ClearLocalCart(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locals, sessionID)
	return nil
}

func (s *stubState) RegionID(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regions[sessionID], nil
}

func (s *stubState) SetRegionID(_ context.Context, sessionID, regionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[sessionID] = regionID
	return nil
}

// stubRegions resolves a fixed Swiss region
type stubRegions struct{}

func (stubRegions) Resolve(context.Context, string) region.Region {
	return region.Region{ID: "reg_ch", Name: "Switzerland", CurrencyCode: "chf", TaxRate: decimal.NewFromFloat(0.081)}
}

// stubCommerce is a minimal in-memory store backend for handler tests
type stubCommerce struct {
	mu    sync.Mutex
	carts map[string]*cart.Cart
	seq   int
}

func newStubCommerce() *stubCommerce {
	return &stubCommerce{carts: make(map[string]*cart.Cart)}
}

func (s *stubCommerce) get(cartID string) (*cart.Cart, error) {
	if c, ok := s.carts[cartID]; ok {
		return c, nil
	}
	return nil, &commerce.APIError{Status: http.StatusNotFound, Message: "Cart not found"}
}

func (s *stubCommerce) CreateCart(_ context.Context, regionID string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	c := &cart.Cart{
		ID:           fmt.Sprintf("cart_%d", s.seq),
		RegionID:     regionID,
		CurrencyCode: "chf",
		Items:        []cart.LineItem{},
		UpdatedAt:    time.Now(),
	}
	s.carts[c.ID] = c
	return c, nil
}

func (s *stubCommerce) RetrieveCart(_ context.Context, cartID string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(cartID)
}

func (s *stubCommerce) UpdateCart(_ context.Context, cartID string, update commerce.CartUpdate) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(cartID)
	if err != nil {
		return nil, err
	}
	if update.Email != nil {
		c.Email = *update.Email
	}
	if update.RegionID != nil {
		c.RegionID = *update.RegionID
	}
	if update.ShippingAddress != nil {
		c.ShippingAddress = update.ShippingAddress
	}
	if update.BillingAddress != nil {
		c.BillingAddress = update.BillingAddress
	}
	return c, nil
}

func (s *stubCommerce) AddLineItem(_ context.Context, cartID, variantID string, quantity int64) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(cartID)
	if err != nil {
		return nil, err
	}
	price := decimal.NewFromFloat(49.90)
	c.Items = append(c.Items, cart.LineItem{
		ID:        fmt.Sprintf("item_%d", len(c.Items)+1),
		Title:     "Test product",
		Quantity:  quantity,
		UnitPrice: price,
		Total:     price.Mul(decimal.NewFromInt(quantity)),
		VariantID: variantID,
		Origin:    cart.OriginRemote,
	})
	return c, nil
}

func (s *stubCommerce) UpdateLineItem(_ context.Context, cartID, lineItemID string, quantity int64) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(cartID)
	if err != nil {
		return nil, err
	}
	for i := range c.Items {
		if c.Items[i].ID == lineItemID {
			c.Items[i].Quantity = quantity
			c.Items[i].Total = c.Items[i].UnitPrice.Mul(decimal.NewFromInt(quantity))
			return c, nil
		}
	}
	return nil, &commerce.APIError{Status: http.StatusNotFound, Message: "Line item not found"}
}

func (s *stubCommerce) DeleteLineItem(_ context.Context, cartID, lineItemID string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(cartID)
	if err != nil {
		return nil, err
	}
	items := c.Items[:0]
	for _, item := range c.Items {
		if item.ID != lineItemID {
			items = append(items, item)
		}
	}
	c.Items = items
	return c, nil
}

func (s *stubCommerce) ListShippingOptions(_ context.Context, cartID string) ([]cart.ShippingOption, error) {
	return []cart.ShippingOption{
		{ID: "so_post", Name: "Standard", Amount: decimal.NewFromFloat(7.90)},
	}, nil
}

func (s *stubCommerce) AddShippingMethod(_ context.Context, cartID, optionID string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(cartID)
	if err != nil {
		return nil, err
	}
	c.ShippingMethod = &cart.ShippingMethod{ID: "sm_1", ShippingOptionID: optionID, Amount: decimal.NewFromFloat(7.90)}
	return c, nil
}

func (s *stubCommerce) CreatePaymentCollection(_ context.Context, cartID string) (*cart.PaymentCollection, error) {
	return &cart.PaymentCollection{ID: "paycol_1"}, nil
}

func (s *stubCommerce) CreatePaymentSession(_ context.Context, collectionID, providerID string) (*cart.PaymentCollection, error) {
	return &cart.PaymentCollection{
		ID: collectionID,
		Sessions: []cart.PaymentSession{
			{ID: "payses_1", ProviderID: providerID, Data: map[string]any{"client_secret": "pi_secret_123"}},
		},
	}, nil
}

func (s *stubCommerce) ApplyPromotions(_ context.Context, cartID string, codes []string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(cartID)
	if err != nil {
		return nil, err
	}
	for _, code := range codes {
		if code == "SUMMER10" && !c.HasPromotion(code) {
			c.Promotions = append(c.Promotions, cart.Promotion{ID: "promo_1", Code: code})
			c.DiscountTotal = decimal.NewFromInt(10)
		}
	}
	return c, nil
}

func (s *stubCommerce) RemovePromotions(_ context.Context, cartID string, codes []string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(cartID)
	if err != nil {
		return nil, err
	}
	for _, code := range codes {
		kept := c.Promotions[:0]
		for _, p := range c.Promotions {
			if p.Code != code {
				kept = append(kept, p)
			}
		}
		c.Promotions = kept
	}
	if len(c.Promotions) == 0 {
		c.DiscountTotal = decimal.Zero
	}
	return c, nil
}

func (s *stubCommerce) CompleteCart(_ context.Context, cartID string) (*commerce.CompleteResult, error) {
	return &commerce.CompleteResult{
		Type:  "order",
		Order: &commerce.Order{ID: "order_1", DisplayID: 1001, Total: decimal.NewFromFloat(49.90)},
	}, nil
}

func (s *stubCommerce) TransferCart(_ context.Context, cartID, customerToken string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(cartID)
}

type cartTestEnv struct {
	engine   *gin.Engine
	backend  *stubCommerce
	state    *stubState
	sessions *cartapp.Sessions
}

func newCartTestEnv(t *testing.T) *cartTestEnv {
	t.Helper()

	backend := newStubCommerce()
	state := newStubState()
	sessions := cartapp.NewSessions(func(sessionID string) *cartapp.Manager {
		return cartapp.NewManager(sessionID, backend, state, stubRegions{}, nil, testStoreConfig(), zap.NewNop())
	})

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Session())

	router.New(engine).
		Register(NewCartHandler(sessions)).
		Setup()

	return &cartTestEnv{engine: engine, backend: backend, state: state, sessions: sessions}
}

func (e *cartTestEnv) request(t *testing.T, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeaderKey, sessionID)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeCartData(t *testing.T, resp dto.Response) CartResponse {
	t.Helper()
	payload, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var data CartResponse
	require.NoError(t, json.Unmarshal(payload, &data))
	return data
}
