package commerce

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alpenform/storefront/internal/domain/cart"
	"github.com/alpenform/storefront/internal/domain/region"
)

// CartExpandFields is the field-expansion parameter requested on every
// cart retrieve so line items, variants, shipping methods and the payment
// collection come back in one round trip.
const CartExpandFields = "items, items.variant, items.variant.product, shipping_methods, payment_collection"

// RemoteRegion is the region shape returned by the store API
type RemoteRegion struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CurrencyCode string          `json:"currency_code"`
	Countries    []RemoteCountry `json:"countries,omitempty"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
}

// RemoteCountry is a country entry inside a region
type RemoteCountry struct {
	ISO2        string `json:"iso_2"`
	DisplayName string `json:"display_name"`
}

// ToRegion converts the wire region to the domain model
func (r *RemoteRegion) ToRegion() region.Region {
	countries := make([]string, 0, len(r.Countries))
	for _, c := range r.Countries {
		countries = append(countries, c.ISO2)
	}
	return region.Region{
		ID:           r.ID,
		Name:         r.Name,
		CurrencyCode: r.CurrencyCode,
		Countries:    countries,
		TaxRate:      r.TaxRate,
	}
}

// RemoteProduct is the product summary nested under a line item variant
type RemoteProduct struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

// RemoteVariant is the purchasable variant nested under a line item
type RemoteVariant struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Product *RemoteProduct `json:"product,omitempty"`
}

// RemoteLineItem is the line item shape returned by the store API
type RemoteLineItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Subtitle  string          `json:"subtitle"`
	Thumbnail string          `json:"thumbnail"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	VariantID string          `json:"variant_id"`
	Variant   *RemoteVariant  `json:"variant,omitempty"`
}

// RemoteShippingMethod is the attached fulfillment method on a cart
type RemoteShippingMethod struct {
	ID               string          `json:"id"`
	ShippingOptionID string          `json:"shipping_option_id"`
	Name             string          `json:"name"`
	Amount           decimal.Decimal `json:"amount"`
}

// RemotePaymentSession is one provider session on a payment collection
type RemotePaymentSession struct {
	ID         string         `json:"id"`
	ProviderID string         `json:"provider_id"`
	Status     string         `json:"status"`
	Data       map[string]any `json:"data,omitempty"`
}

// RemotePaymentCollection groups the payment sessions attached to a cart
type RemotePaymentCollection struct {
	ID              string                 `json:"id"`
	PaymentSessions []RemotePaymentSession `json:"payment_sessions,omitempty"`
}

// ToPaymentCollection converts the wire payment collection to the domain model
func (pc *RemotePaymentCollection) ToPaymentCollection() *cart.PaymentCollection {
	if pc == nil {
		return nil
	}
	sessions := make([]cart.PaymentSession, 0, len(pc.PaymentSessions))
	for _, s := range pc.PaymentSessions {
		sessions = append(sessions, cart.PaymentSession{
			ID:         s.ID,
			ProviderID: s.ProviderID,
			Status:     s.Status,
			Data:       s.Data,
		})
	}
	return &cart.PaymentCollection{ID: pc.ID, Sessions: sessions}
}

// RemoteCart is the cart shape returned by the store API
type RemoteCart struct {
	ID                string                   `json:"id"`
	RegionID          string                   `json:"region_id"`
	CurrencyCode      string                   `json:"currency_code"`
	Email             string                   `json:"email"`
	Items             []RemoteLineItem         `json:"items"`
	ShippingAddress   *cart.Address            `json:"shipping_address,omitempty"`
	BillingAddress    *cart.Address            `json:"billing_address,omitempty"`
	Promotions        []cart.Promotion         `json:"promotions,omitempty"`
	ShippingMethods   []RemoteShippingMethod   `json:"shipping_methods,omitempty"`
	PaymentCollection *RemotePaymentCollection `json:"payment_collection,omitempty"`

	Subtotal      decimal.Decimal `json:"subtotal"`
	ItemTotal     decimal.Decimal `json:"item_total"`
	ShippingTotal decimal.Decimal `json:"shipping_total"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	Total         decimal.Decimal `json:"total"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ToCart converts the wire cart to the domain model. Every line item is
// tagged remote-origin; variant and product references are flattened.
func (rc *RemoteCart) ToCart() *cart.Cart {
	c := &cart.Cart{
		ID:                rc.ID,
		RegionID:          rc.RegionID,
		CurrencyCode:      rc.CurrencyCode,
		Email:             rc.Email,
		Items:             make([]cart.LineItem, 0, len(rc.Items)),
		ShippingAddress:   rc.ShippingAddress,
		BillingAddress:    rc.BillingAddress,
		Promotions:        rc.Promotions,
		PaymentCollection: rc.PaymentCollection.ToPaymentCollection(),
		Subtotal:          rc.Subtotal,
		ItemTotal:         rc.ItemTotal,
		ShippingTotal:     rc.ShippingTotal,
		DiscountTotal:     rc.DiscountTotal,
		TaxTotal:          rc.TaxTotal,
		Total:             rc.Total,
		CompletedAt:       rc.CompletedAt,
		UpdatedAt:         time.Now(),
	}

	for _, item := range rc.Items {
		li := cart.LineItem{
			ID:        item.ID,
			Title:     item.Title,
			Subtitle:  item.Subtitle,
			Thumbnail: item.Thumbnail,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
			VariantID: item.VariantID,
			Origin:    cart.OriginRemote,
		}
		if item.Variant != nil {
			if li.VariantID == "" {
				li.VariantID = item.Variant.ID
			}
			if item.Variant.Product != nil {
				li.ProductID = item.Variant.Product.ID
				li.ProductHandle = item.Variant.Product.Handle
			}
		}
		c.Items = append(c.Items, li)
	}

	if len(rc.ShippingMethods) > 0 {
		method := rc.ShippingMethods[len(rc.ShippingMethods)-1]
		c.ShippingMethod = &cart.ShippingMethod{
			ID:               method.ID,
			ShippingOptionID: method.ShippingOptionID,
			Name:             method.Name,
			Amount:           method.Amount,
		}
	}

	return c
}

// RemoteShippingOption is a fulfillment option scoped to a cart. The
// price arrives either as a flat amount or nested under calculated_price.
type RemoteShippingOption struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	CalculatedPrice *struct {
		CalculatedAmount decimal.Decimal `json:"calculated_amount"`
		IsTaxInclusive   bool            `json:"is_calculated_price_tax_inclusive"`
	} `json:"calculated_price,omitempty"`
}

// ToShippingOption normalizes the price into the domain shape
func (o *RemoteShippingOption) ToShippingOption() cart.ShippingOption {
	opt := cart.ShippingOption{
		ID:   o.ID,
		Name: o.Name,
	}
	switch {
	case o.CalculatedPrice != nil:
		opt.Amount = o.CalculatedPrice.CalculatedAmount
		opt.TaxInclusive = o.CalculatedPrice.IsTaxInclusive
	case o.Amount != nil:
		opt.Amount = *o.Amount
	}
	return opt
}

// Customer is the commerce platform's customer record
type Customer struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Order is the completed-order summary returned by cart completion
type Order struct {
	ID        string          `json:"id"`
	DisplayID int64           `json:"display_id"`
	Email     string          `json:"email"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// CompleteResult is the discriminated result of cart completion:
// type "order" carries the order, type "cart" carries the rejection.
type CompleteResult struct {
	Type  string      `json:"type"`
	Order *Order      `json:"order,omitempty"`
	Cart  *RemoteCart `json:"cart,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CartUpdate carries the partial cart fields for a generic merge update
type CartUpdate struct {
	Email           *string       `json:"email,omitempty"`
	RegionID        *string       `json:"region_id,omitempty"`
	ShippingAddress *cart.Address `json:"shipping_address,omitempty"`
	BillingAddress  *cart.Address `json:"billing_address,omitempty"`
}

// RegisterCustomerRequest carries the registration payload
type RegisterCustomerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Response envelopes used by the store API
type regionsEnvelope struct {
	Regions []RemoteRegion `json:"regions"`
}

type cartEnvelope struct {
	Cart *RemoteCart `json:"cart"`
}

type deletedItemEnvelope struct {
	Parent *RemoteCart `json:"parent"`
}

type shippingOptionsEnvelope struct {
	ShippingOptions []RemoteShippingOption `json:"shipping_options"`
}

type paymentCollectionEnvelope struct {
	PaymentCollection *RemotePaymentCollection `json:"payment_collection"`
}

type tokenEnvelope struct {
	Token string `json:"token"`
}

type customerEnvelope struct {
	Customer *Customer `json:"customer"`
}
