package identity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alpenform/storefront/internal/infrastructure/auth"
	"github.com/alpenform/storefront/internal/infrastructure/commerce"
)

// CustomerAPI is the slice of the store API the identity service needs.
type CustomerAPI interface {
	AuthenticateCustomer(ctx context.Context, email, password string) (string, error)
	RegisterCustomer(ctx context.Context, req commerce.RegisterCustomerRequest) (string, *commerce.Customer, error)
	RetrieveCustomer(ctx context.Context, customerToken string) (*commerce.Customer, error)
	UpdateCustomer(ctx context.Context, customerToken string, update map[string]string) (*commerce.Customer, error)
}

// CartTransferer moves the session's cart onto an authenticated customer.
type CartTransferer interface {
	TransferToCustomer(ctx context.Context, customerToken string)
}

// ManagerRegistry resolves the cart manager for a browsing session.
type ManagerRegistry interface {
	Transferer(sessionID string) CartTransferer
}

// RegisterInput carries a registration request
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileUpdate carries optional profile fields. Nil fields are untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// AuthResult is returned by Login and Register
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Customer  *commerce.Customer
}

// Service authenticates customers against the store API and issues
// storefront session tokens. After a successful login or registration the
// session's cart is transferred to the customer; transfer failures never
// fail the authentication itself.
type Service struct {
	commerce CustomerAPI
	tokens   *auth.TokenService
	carts    ManagerRegistry
	logger   *zap.Logger
}

// NewService creates an identity service
func NewService(api CustomerAPI, tokens *auth.TokenService, carts ManagerRegistry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		commerce: api,
		tokens:   tokens,
		carts:    carts,
		logger:   logger,
	}
}

// Login authenticates an existing customer and transfers the session cart
func (s *Service) Login(ctx context.Context, sessionID, email, password string) (*AuthResult, error) {
	customerToken, err := s.commerce.AuthenticateCustomer(ctx, email, password)
	if err != nil {
		return nil, err
	}
	customer, err := s.commerce.RetrieveCustomer(ctx, customerToken)
	if err != nil {
		return nil, err
	}
	return s.finishAuth(ctx, sessionID, customerToken, customer)
}

// Register creates a customer account, authenticates it, and transfers the
// session cart
func (s *Service) Register(ctx context.Context, sessionID string, input RegisterInput) (*AuthResult, error) {
	customerToken, customer, err := s.commerce.RegisterCustomer(ctx, commerce.RegisterCustomerRequest{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		return nil, err
	}
	return s.finishAuth(ctx, sessionID, customerToken, customer)
}

func (s *Service) finishAuth(ctx context.Context, sessionID, customerToken string, customer *commerce.Customer) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Generate(customer.ID, customer.Email, customerToken)
	if err != nil {
		return nil, err
	}

	if s.carts != nil && sessionID != "" {
		if transferer := s.carts.Transferer(sessionID); transferer != nil {
			transferer.TransferToCustomer(ctx, customerToken)
		}
	}

	s.logger.Info("customer authenticated",
		zap.String("customer_id", customer.ID),
		zap.String("session_id", sessionID))

	return &AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Customer:  customer,
	}, nil
}

// Me returns the authenticated customer's profile
func (s *Service) Me(ctx context.Context, claims *auth.Claims) (*commerce.Customer, error) {
	return s.commerce.RetrieveCustomer(ctx, claims.CustomerToken)
}

// UpdateProfile updates the authenticated customer's profile fields
func (s *Service) UpdateProfile(ctx context.Context, claims *auth.Claims, update ProfileUpdate) (*commerce.Customer, error) {
	fields := make(map[string]string)
	if update.FirstName != nil {
		fields["first_name"] = *update.FirstName
	}
	if update.LastName != nil {
		fields["last_name"] = *update.LastName
	}
	if update.Phone != nil {
		fields["phone"] = *update.Phone
	}
	if len(fields) == 0 {
		return s.commerce.RetrieveCustomer(ctx, claims.CustomerToken)
	}
	return s.commerce.UpdateCustomer(ctx, claims.CustomerToken, fields)
}
