package cart

import (
	"go.uber.org/zap"

	"github.com/alpenform/storefront/internal/domain/cart"
)

// Notifier receives the storefront-facing side effects of cart
// operations. The web layer turns these into UI events; background
// callers usually pass the no-op implementation.
type Notifier interface {
	// ItemAdded fires after an item lands in the cart
	ItemAdded(sessionID string, item cart.LineItem)

	// OpenCart asks the storefront to bring the cart into view
	OpenCart(sessionID string)
}

// NopNotifier discards all notifications
type NopNotifier struct{}

func (NopNotifier) ItemAdded(string, cart.LineItem) {}
func (NopNotifier) OpenCart(string)                 {}

// LoggingNotifier writes cart events to the structured log. It stands in
// for a real push channel until one is wired.
type LoggingNotifier struct {
	logger *zap.Logger
}

// NewLoggingNotifier creates a notifier that logs cart events
func NewLoggingNotifier(logger *zap.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: logger}
}

func (n *LoggingNotifier) ItemAdded(sessionID string, item cart.LineItem) {
	n.logger.Info("cart item added",
		zap.String("session_id", sessionID),
		zap.String("item_id", item.ID),
		zap.String("title", item.Title),
		zap.Int64("quantity", item.Quantity))
}

func (n *LoggingNotifier) OpenCart(sessionID string) {
	n.logger.Debug("cart open requested", zap.String("session_id", sessionID))
}
