package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alpenform/storefront/internal/domain/cart"
	"github.com/alpenform/storefront/internal/infrastructure/persistence/models"
)

// GormSessionStateRepository implements cart.SessionStateRepository using GORM.
// It is the server-side stand-in for the browser storage the original
// storefront used: one row per session, last write wins, corrupt values
// read back as empty.
type GormSessionStateRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormSessionStateRepository creates a new GormSessionStateRepository
func NewGormSessionStateRepository(db *gorm.DB, logger *zap.Logger) *GormSessionStateRepository {
	return &GormSessionStateRepository{db: db, logger: logger}
}

var _ cart.SessionStateRepository = (*GormSessionStateRepository)(nil)

// CartID returns the persisted remote cart ID, or "" when unset
func (r *GormSessionStateRepository) CartID(ctx context.Context, sessionID string) (string, error) {
	state, err := r.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if state == nil {
		return "", nil
	}
	return state.CartID, nil
}

// SetCartID persists the remote cart ID for the session
func (r *GormSessionStateRepository) SetCartID(ctx context.Context, sessionID, cartID string) error {
	return r.upsert(ctx, sessionID, map[string]any{"cart_id": cartID})
}

// ClearCartID forgets the remote cart ID for the session
func (r *GormSessionStateRepository) ClearCartID(ctx context.Context, sessionID string) error {
	return r.upsert(ctx, sessionID, map[string]any{"cart_id": ""})
}

// LocalCart loads the persisted local cart mirror. An absent row or a
// blob that fails to decode yields a fresh empty cart.
func (r *GormSessionStateRepository) LocalCart(ctx context.Context, sessionID, currencyCode string) (*cart.Cart, error) {
	state, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil || state.LocalCartJSON == "" {
		return cart.NewLocalCart(currencyCode), nil
	}

	var c cart.Cart
	if err := json.Unmarshal([]byte(state.LocalCartJSON), &c); err != nil {
		r.logger.Warn("discarding corrupt local cart blob",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return cart.NewLocalCart(currencyCode), nil
	}
	if c.ID != cart.LocalCartID {
		// Blob decoded but is not a local cart; treat as corrupt
		return cart.NewLocalCart(currencyCode), nil
	}
	if c.CurrencyCode == "" {
		c.CurrencyCode = currencyCode
	}
	return &c, nil
}

// SaveLocalCart persists the local cart mirror for the session
func (r *GormSessionStateRepository) SaveLocalCart(ctx context.Context, sessionID string, c *cart.Cart) error {
	blob, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.upsert(ctx, sessionID, map[string]any{"local_cart": string(blob)})
}

// ClearLocalCart drops the persisted local cart mirror
func (r *GormSessionStateRepository) ClearLocalCart(ctx context.Context, sessionID string) error {
	return r.upsert(ctx, sessionID, map[string]any{"local_cart": ""})
}

// RegionID returns the persisted explicit region choice, or ""
func (r *GormSessionStateRepository) RegionID(ctx context.Context, sessionID string) (string, error) {
	state, err := r.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if state == nil {
		return "", nil
	}
	return state.RegionID, nil
}

// SetRegionID persists the explicit region choice for the session
func (r *GormSessionStateRepository) SetRegionID(ctx context.Context, sessionID, regionID string) error {
	return r.upsert(ctx, sessionID, map[string]any{"region_id": regionID})
}

func (r *GormSessionStateRepository) load(ctx context.Context, sessionID string) (*models.SessionStateModel, error) {
	var state models.SessionStateModel
	err := r.db.WithContext(ctx).First(&state, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *GormSessionStateRepository) upsert(ctx context.Context, sessionID string, values map[string]any) error {
	state := models.SessionStateModel{SessionID: sessionID}
	assignments := make([]string, 0, len(values))
	for column, value := range values {
		assignments = append(assignments, column)
		switch column {
		case "cart_id":
			state.CartID = value.(string)
		case "region_id":
			state.RegionID = value.(string)
		case "local_cart":
			state.LocalCartJSON = value.(string)
		}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns(append(assignments, "updated_at")),
		}).
		Create(&state).Error
}
