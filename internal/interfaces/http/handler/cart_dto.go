package handler

import (
	"github.com/alpenform/storefront/internal/domain/cart"
)

// AddItemRequest adds a commerce variant to the cart
type AddItemRequest struct {
	VariantID string `json:"variant_id" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// AddLocalItemRequest adds a session-store product to the cart
type AddLocalItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Subtitle  string `json:"subtitle"`
	Thumbnail string `json:"thumbnail"`
	Handle    string `json:"handle"`
	UnitPrice string `json:"unit_price" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// UpdateItemRequest changes a line item's quantity
type UpdateItemRequest struct {
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}

// AddressRequest carries a postal address
type AddressRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company"`
	Address1    string `json:"address_1"`
	Address2    string `json:"address_2"`
	City        string `json:"city"`
	Province    string `json:"province"`
	PostalCode  string `json:"postal_code" binding:"omitempty,swiss_postal_code"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
}

func (r *AddressRequest) toDomain() *cart.Address {
	if r == nil {
		return nil
	}
	return &cart.Address{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Company:     r.Company,
		Address1:    r.Address1,
		Address2:    r.Address2,
		City:        r.City,
		Province:    r.Province,
		PostalCode:  r.PostalCode,
		CountryCode: r.CountryCode,
		Phone:       r.Phone,
	}
}

// UpdateCartRequest patches cart-level fields. Absent fields are left
// untouched.
type UpdateCartRequest struct {
	Email           *string         `json:"email" binding:"omitempty,email"`
	ShippingAddress *AddressRequest `json:"shipping_address"`
	BillingAddress  *AddressRequest `json:"billing_address"`
}

// AddShippingMethodRequest selects a shipping option for the cart
type AddShippingMethodRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}

// PromotionRequest applies or removes a promotion code
type PromotionRequest struct {
	Code string `json:"code" binding:"required,promo_code"`
}

// PaymentSessionRequest initializes a payment session. ProviderID is
// optional; the configured default provider is used when absent.
type PaymentSessionRequest struct {
	ProviderID string `json:"provider_id"`
}

// SetRegionRequest pins the session to a region
type SetRegionRequest struct {
	RegionID string `json:"region_id" binding:"required"`
}

// CartResponse wraps the cart with session-level state
type CartResponse struct {
	Cart      *cart.Cart `json:"cart"`
	Mode      string     `json:"mode"`
	ItemCount int64      `json:"item_count"`
}
