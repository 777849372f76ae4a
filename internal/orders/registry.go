package orders

import (
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/fasters/starshop/core/logger"
)

// ErrNotFound reports a lookup or removal of an order id that is not live.
var ErrNotFound = errors.New("orders: order not found")

// Registry is the shared store of in-flight orders, keyed by order id.
// It is safe for concurrent use: handlers for different users and the
// admin workflow operate on it simultaneously.
//
// Ids are generated inside Create and are never accepted from callers,
// so a removed id can never be re-inserted.
type Registry struct {
	mu     sync.Mutex
	orders map[string]Order
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{orders: make(map[string]Order)}
}

// Create inserts the order under a freshly generated id and returns it.
// The stored copy gets the id and creation timestamp filled in.
func (r *Registry) Create(order Order) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	for {
		if _, exists := r.orders[id]; !exists {
			break
		}
		id = uuid.NewString()
	}

	order.ID = id
	order.CreatedAt = time.Now().UTC()
	r.orders[id] = order

	if logger.SVCOrders != nil {
		logger.SVCOrders.Debug("order created",
			slog.String("event", "registry.create"),
			slog.String("order_id", id),
			slog.Int64("user_id", order.UserID),
			slog.Int("quantity", order.Quantity),
			slog.String("method", string(order.Method)),
			slog.Int("orders_pending", len(r.orders)),
		)
	}
	return id
}

// Get returns a copy of the order without mutating the registry.
func (r *Registry) Get(id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

// Remove atomically reads and deletes the order. When a confirm and a
// cancel race on the same id, exactly one caller gets the order; the
// other observes ErrNotFound.
func (r *Registry) Remove(id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	delete(r.orders, id)

	if logger.SVCOrders != nil {
		logger.SVCOrders.Debug("order removed",
			slog.String("event", "registry.remove"),
			slog.String("order_id", id),
			slog.Int("orders_pending", len(r.orders)),
		)
	}
	return order, nil
}

// Len reports the number of live orders (diagnostics only).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}
