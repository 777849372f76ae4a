// Package orders defines the order entity and the in-memory registry that
// holds orders between user confirmation and admin hand-off.
package orders

import (
	"time"

	"github.com/fasters/starshop/internal/pricing"
)

// Status tracks an order through its lifecycle.
type Status string

const (
	// StatusCollecting marks an order whose parameters are still being gathered.
	StatusCollecting Status = "collecting"
	// StatusPendingUserConfirmation marks an order awaiting the buyer's confirm/cancel.
	StatusPendingUserConfirmation Status = "pending_user_confirmation"
	// StatusPendingAdminDecision marks an order handed to the admin workflow.
	StatusPendingAdminDecision Status = "pending_admin_decision"
	// StatusApproved is terminal: the admin accepted the order.
	StatusApproved Status = "approved"
	// StatusRejected is terminal: the admin declined the order.
	StatusRejected Status = "rejected"
	// StatusCancelled is terminal: the buyer withdrew the order.
	StatusCancelled Status = "cancelled"
)

// Order is a single request to purchase a quantity of stars. All fields
// except Status are immutable once the order is created.
type Order struct {
	ID       string
	UserID   int64
	Username string
	Target   string
	Quantity int
	Method   pricing.Method
	// MethodLabel is the display text of the payment method; for
	// MethodOther it carries the buyer's free-text description.
	MethodLabel string
	Rate        float64
	Currency    string
	Total       float64
	Status      Status
	CreatedAt   time.Time
}
