package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/alpenform/storefront/internal/domain/cart"
	"github.com/alpenform/storefront/internal/infrastructure/commerce"
)

// CommerceAPI is the slice of the commerce client the cart manager uses
type CommerceAPI interface {
	RetrieveCart(ctx context.Context, cartID string) (*cart.Cart, error)
	CreateCart(ctx context.Context, regionID string) (*cart.Cart, error)
	UpdateCart(ctx context.Context, cartID string, update commerce.CartUpdate) (*cart.Cart, error)
	AddLineItem(ctx context.Context, cartID, variantID string, quantity int64) (*cart.Cart, error)
	UpdateLineItem(ctx context.Context, cartID, lineItemID string, quantity int64) (*cart.Cart, error)
	DeleteLineItem(ctx context.Context, cartID, lineItemID string) (*cart.Cart, error)
	ListShippingOptions(ctx context.Context, cartID string) ([]cart.ShippingOption, error)
	AddShippingMethod(ctx context.Context, cartID, optionID string) (*cart.Cart, error)
	CreatePaymentCollection(ctx context.Context, cartID string) (*cart.PaymentCollection, error)
	CreatePaymentSession(ctx context.Context, collectionID, providerID string) (*cart.PaymentCollection, error)
	ApplyPromotions(ctx context.Context, cartID string, codes []string) (*cart.Cart, error)
	RemovePromotions(ctx context.Context, cartID string, codes []string) (*cart.Cart, error)
	CompleteCart(ctx context.Context, cartID string) (*commerce.CompleteResult, error)
	TransferCart(ctx context.Context, cartID, customerToken string) (*cart.Cart, error)
}

// CartUpdateInput carries the partial cart fields a session may update
type CartUpdateInput struct {
	Email           *string       `json:"email,omitempty"`
	ShippingAddress *cart.Address `json:"shipping_address,omitempty"`
	BillingAddress  *cart.Address `json:"billing_address,omitempty"`
}

// PromotionResult is the outcome of applying or removing a promotion
// code. Rejections are values, not errors; only transport failures
// surface as errors.
type PromotionResult struct {
	Applied       bool            `json:"applied"`
	Code          string          `json:"code"`
	Message       string          `json:"message,omitempty"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
}

// PaymentSessionResult carries the material the storefront needs to
// mount the payment element
type PaymentSessionResult struct {
	ProviderID   string `json:"provider_id"`
	ClientSecret string `json:"client_secret,omitempty"`
}
