package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alpenform/storefront/internal/domain/cart"
	"github.com/alpenform/storefront/internal/domain/region"
	"github.com/alpenform/storefront/internal/infrastructure/config"
)

// maxResponseSize is the maximum allowed response size from the store API (10MB)
const maxResponseSize = 10 * 1024 * 1024

const publishableKeyHeader = "x-publishable-api-key"

// Client talks to the headless commerce backend's store API. All cart,
// region, shipping and customer operations go through it; it never holds
// cart state of its own.
type Client struct {
	baseURL        string
	publishableKey string
	httpClient     *http.Client
	logger         *zap.Logger
	tracer         trace.Tracer
}

// NewClient creates a store API client from the commerce configuration
func NewClient(cfg config.CommerceConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("commerce: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		publishableKey: cfg.PublishableKey,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
		tracer:         otel.Tracer("commerce-client"),
	}, nil
}

// ---------------------------------------------------------------------------
// Region Operations
// ---------------------------------------------------------------------------

// ListRegions fetches all regions the backend serves
func (c *Client) ListRegions(ctx context.Context) ([]region.Region, error) {
	var env regionsEnvelope
	if err := c.do(ctx, http.MethodGet, "/store/regions", nil, "", &env); err != nil {
		return nil, err
	}
	regions := make([]region.Region, 0, len(env.Regions))
	for i := range env.Regions {
		regions = append(regions, env.Regions[i].ToRegion())
	}
	return regions, nil
}

// ---------------------------------------------------------------------------
// Cart Operations
// ---------------------------------------------------------------------------

// CreateCart creates a new cart scoped to the given region
func (c *Client) CreateCart(ctx context.Context, regionID string) (*cart.Cart, error) {
	body := map[string]string{"region_id": regionID}
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, "/store/carts", body, "", &env); err != nil {
		return nil, err
	}
	return c.cartFromEnvelope(&env)
}

// RetrieveCart fetches a cart with items, variants, shipping methods and
// the payment collection expanded
func (c *Client) RetrieveCart(ctx context.Context, cartID string) (*cart.Cart, error) {
	path := fmt.Sprintf("/store/carts/%s?fields=%s", url.PathEscape(cartID), url.QueryEscape(CartExpandFields))
	var env cartEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, "", &env); err != nil {
		return nil, err
	}
	return c.cartFromEnvelope(&env)
}

// UpdateCart merges the given partial fields into the cart
func (c *Client) UpdateCart(ctx context.Context, cartID string, update CartUpdate) (*cart.Cart, error) {
	path := "/store/carts/" + url.PathEscape(cartID)
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, path, update, "", &env); err != nil {
		return nil, err
	}
	return c.cartFromEnvelope(&env)
}

// TransferCart issues an empty authenticated update so the backend links
// the cart to the customer the token belongs to
func (c *Client) TransferCart(ctx context.Context, cartID, customerToken string) (*cart.Cart, error) {
	path := "/store/carts/" + url.PathEscape(cartID)
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, path, map[string]string{}, customerToken, &env); err != nil {
		return nil, err
	}
	return c.cartFromEnvelope(&env)
}

// AddLineItem adds a variant to the cart, summing quantities server-side
// when the variant is already present
func (c *Client) AddLineItem(ctx context.Context, cartID, variantID string, quantity int64) (*cart.Cart, error) {
	path := fmt.Sprintf("/store/carts/%s/line-items", url.PathEscape(cartID))
	body := map[string]any{"variant_id": variantID, "quantity": quantity}
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, path, body, "", &env); err != nil {
		return nil, err
	}
	return c.cartFromEnvelope(&env)
}

// UpdateLineItem sets the quantity of an existing line item
func (c *Client) UpdateLineItem(ctx context.Context, cartID, lineItemID string, quantity int64) (*cart.Cart, error) {
	path := fmt.Sprintf("/store/carts/%s/line-items/%s", url.PathEscape(cartID), url.PathEscape(lineItemID))
	body := map[string]any{"quantity": quantity}
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, path, body, "", &env); err != nil {
		return nil, err
	}
	return c.cartFromEnvelope(&env)
}

// DeleteLineItem removes a line item; the backend returns the parent cart
func (c *Client) DeleteLineItem(ctx context.Context, cartID, lineItemID string) (*cart.Cart, error) {
	path := fmt.Sprintf("/store/carts/%s/line-items/%s", url.PathEscape(cartID), url.PathEscape(lineItemID))
	var env deletedItemEnvelope
	if err := c.do(ctx, http.MethodDelete, path, nil, "", &env); err != nil {
		return nil, err
	}
	if env.Parent == nil {
		return nil, fmt.Errorf("%w: missing parent cart", ErrInvalidResponse)
	}
	return env.Parent.ToCart(), nil
}

// ---------------------------------------------------------------------------
// Shipping Operations
// ---------------------------------------------------------------------------

// ListShippingOptions fetches the fulfillment options available for a cart
func (c *Client) ListShippingOptions(ctx context.Context, cartID string) ([]cart.ShippingOption, error) {
	path := "/store/shipping-options?cart_id=" + url.QueryEscape(cartID)
	var env shippingOptionsEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, "", &env); err != nil {
		return nil, err
	}
	options := make([]cart.ShippingOption, 0, len(env.ShippingOptions))
	for i := range env.ShippingOptions {
		options = append(options, env.ShippingOptions[i].ToShippingOption())
	}
	return options, nil
}

// AddShippingMethod attaches a shipping option to the cart
func (c *Client) AddShippingMethod(ctx context.Context, cartID, optionID string) (*cart.Cart, error) {
	path := fmt.Sprintf("/store/carts/%s/shipping-methods", url.PathEscape(cartID))
	body := map[string]string{"option_id": optionID}
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, path, body, "", &env); err != nil {
		return nil, err
	}
	return c.cartFromEnvelope(&env)
}

// ---------------------------------------------------------------------------
// Payment Operations
// ---------------------------------------------------------------------------

// CreatePaymentCollection creates the payment collection grouping a
// cart's payment sessions
func (c *Client) CreatePaymentCollection(ctx context.Context, cartID string) (*cart.PaymentCollection, error) {
	body := map[string]string{"cart_id": cartID}
	var env paymentCollectionEnvelope
	if err := c.do(ctx, http.MethodPost, "/store/payment-collections", body, "", &env); err != nil {
		return nil, err
	}
	if env.PaymentCollection == nil {
		return nil, fmt.Errorf("%w: missing payment collection", ErrInvalidResponse)
	}
	return env.PaymentCollection.ToPaymentCollection(), nil
}

// CreatePaymentSession initializes a provider session on the collection
func (c *Client) CreatePaymentSession(ctx context.Context, collectionID, providerID string) (*cart.PaymentCollection, error) {
	path := fmt.Sprintf("/store/payment-collections/%s/payment-sessions", url.PathEscape(collectionID))
	body := map[string]string{"provider_id": providerID}
	var env paymentCollectionEnvelope
	if err := c.do(ctx, http.MethodPost, path, body, "", &env); err != nil {
		return nil, err
	}
	if env.PaymentCollection == nil {
		return nil, fmt.Errorf("%w: missing payment collection", ErrInvalidResponse)
	}
	return env.PaymentCollection.ToPaymentCollection(), nil
}

// ---------------------------------------------------------------------------
// Promotion Operations
// ---------------------------------------------------------------------------

// ApplyPromotions adds promotion codes to the cart. The backend silently
// ignores codes it does not recognize, so callers diff the promotion list
// before and after to detect rejection.
func (c *Client) ApplyPromotions(ctx context.Context, cartID string, codes []string) (*cart.Cart, error) {
	path := fmt.Sprintf("/store/carts/%s/promotions", url.PathEscape(cartID))
	body := map[string]any{"promo_codes": codes}
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, path, body, "", &env); err != nil {
		return nil, err
	}
	return c.cartFromEnvelope(&env)
}

// RemovePromotions removes promotion codes from the cart
func (c *Client) RemovePromotions(ctx context.Context, cartID string, codes []string) (*cart.Cart, error) {
	path := fmt.Sprintf("/store/carts/%s/promotions", url.PathEscape(cartID))
	body := map[string]any{"promo_codes": codes}
	var env cartEnvelope
	if err := c.do(ctx, http.MethodDelete, path, body, "", &env); err != nil {
		return nil, err
	}
	return c.cartFromEnvelope(&env)
}

// ---------------------------------------------------------------------------
// Checkout Operations
// ---------------------------------------------------------------------------

// CompleteCart attempts to turn the cart into an order
func (c *Client) CompleteCart(ctx context.Context, cartID string) (*CompleteResult, error) {
	path := fmt.Sprintf("/store/carts/%s/complete", url.PathEscape(cartID))
	var result CompleteResult
	if err := c.do(ctx, http.MethodPost, path, map[string]string{}, "", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ---------------------------------------------------------------------------
// Customer Operations
// ---------------------------------------------------------------------------

// AuthenticateCustomer exchanges email/password credentials for a
// backend-issued customer token
func (c *Client) AuthenticateCustomer(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var env tokenEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/customer/emailpass", body, "", &env); err != nil {
		return "", err
	}
	if env.Token == "" {
		return "", fmt.Errorf("%w: missing token", ErrInvalidResponse)
	}
	return env.Token, nil
}

// RegisterCustomer registers the identity, creates the customer record
// under the registration token, then authenticates to obtain a usable
// customer token
func (c *Client) RegisterCustomer(ctx context.Context, req RegisterCustomerRequest) (string, *Customer, error) {
	var reg tokenEnvelope
	body := map[string]string{"email": req.Email, "password": req.Password}
	if err := c.do(ctx, http.MethodPost, "/auth/customer/emailpass/register", body, "", &reg); err != nil {
		return "", nil, err
	}

	var env customerEnvelope
	create := map[string]string{
		"email":      req.Email,
		"first_name": req.FirstName,
		"last_name":  req.LastName,
	}
	if err := c.do(ctx, http.MethodPost, "/store/customers", create, reg.Token, &env); err != nil {
		return "", nil, err
	}
	if env.Customer == nil {
		return "", nil, fmt.Errorf("%w: missing customer", ErrInvalidResponse)
	}

	token, err := c.AuthenticateCustomer(ctx, req.Email, req.Password)
	if err != nil {
		return "", nil, err
	}
	return token, env.Customer, nil
}

// RetrieveCustomer fetches the customer the token belongs to
func (c *Client) RetrieveCustomer(ctx context.Context, customerToken string) (*Customer, error) {
	var env customerEnvelope
	if err := c.do(ctx, http.MethodGet, "/store/customers/me", nil, customerToken, &env); err != nil {
		return nil, err
	}
	if env.Customer == nil {
		return nil, fmt.Errorf("%w: missing customer", ErrInvalidResponse)
	}
	return env.Customer, nil
}

// UpdateCustomer updates the profile of the customer the token belongs to
func (c *Client) UpdateCustomer(ctx context.Context, customerToken string, update map[string]string) (*Customer, error) {
	var env customerEnvelope
	if err := c.do(ctx, http.MethodPost, "/store/customers/me", update, customerToken, &env); err != nil {
		return nil, err
	}
	if env.Customer == nil {
		return nil, fmt.Errorf("%w: missing customer", ErrInvalidResponse)
	}
	return env.Customer, nil
}

// ---------------------------------------------------------------------------
// HTTP plumbing
// ---------------------------------------------------------------------------

func (c *Client) cartFromEnvelope(env *cartEnvelope) (*cart.Cart, error) {
	if env.Cart == nil {
		return nil, fmt.Errorf("%w: missing cart", ErrInvalidResponse)
	}
	return env.Cart.ToCart(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, customerToken string, out any) error {
	ctx, span := c.tracer.Start(ctx, "commerce.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		))
	defer span.End()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("commerce: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("commerce: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.publishableKey != "" {
		req.Header.Set(publishableKeyHeader, c.publishableKey)
	}
	if customerToken != "" {
		req.Header.Set("Authorization", "Bearer "+customerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, "backend unreachable")
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("commerce: failed to read response: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("commerce request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		span.SetStatus(codes.Error, apiErr.Message)
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: failed to parse response: %v", ErrInvalidResponse, err)
		}
	}
	return nil
}
