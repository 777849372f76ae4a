// Package approval implements the human-in-the-loop decision step. Once a
// buyer confirms an order it is handed over here and never returns to the
// order registry; the workflow owns the rest of its lifecycle.
package approval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"log/slog"

	"github.com/fasters/starshop/core/logger"
	"github.com/fasters/starshop/core/telegram/format"
	"github.com/fasters/starshop/core/telegram/keyboard"
	"github.com/fasters/starshop/internal/orders"

	tele "gopkg.in/telebot.v4"
)

// Callback uniques for the admin decision buttons; payload carries the
// order id.
const (
	CallbackApprove = "admin_approve"
	CallbackReject  = "admin_reject"
)

// Decision is the admin's terminal verdict on an order.
type Decision string

const (
	// DecisionApproved marks an accepted order.
	DecisionApproved Decision = "approved"
	// DecisionRejected marks a declined order.
	DecisionRejected Decision = "rejected"
)

var (
	// ErrAlreadyResolved reports a second decision on an order that was
	// already approved or rejected.
	ErrAlreadyResolved = errors.New("approval: order already resolved")
	// ErrUnknownOrder reports a decision referencing an order that was
	// never submitted for approval.
	ErrUnknownOrder = errors.New("approval: unknown order")
)

// Poster delivers messages to a chat. internal/app adapts the bot to this
// interface; tests plug in fakes.
type Poster interface {
	Post(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error
}

// Archive records resolved orders for history. A no-op implementation is
// used when the database is disabled.
type Archive interface {
	Record(ctx context.Context, ord orders.Order, decision Decision) error
}

// Config identifies the review and broadcast chats.
type Config struct {
	// AdminChatID receives new orders with the decision buttons.
	AdminChatID int64
	// GroupChatID receives the broadcast for approved orders.
	GroupChatID int64
}

// Workflow holds orders pending an admin decision and guarantees at most
// one terminal decision per order id.
type Workflow struct {
	cfg     Config
	archive Archive

	mu       sync.Mutex
	poster   Poster
	pending  map[string]orders.Order
	resolved map[string]Decision
}

// New constructs a Workflow. The poster is attached later via SetPoster
// because the bot instance only exists once the transport is running.
func New(cfg Config, archive Archive) *Workflow {
	return &Workflow{
		cfg:      cfg,
		archive:  archive,
		pending:  make(map[string]orders.Order),
		resolved: make(map[string]Decision),
	}
}

// SetPoster wires the outbound message sender.
func (w *Workflow) SetPoster(p Poster) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.poster = p
}

func (w *Workflow) currentPoster() (Poster, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.poster == nil {
		return nil, errors.New("approval: poster not configured")
	}
	return w.poster, nil
}

// AdminChatID exposes the review chat id for handler-side access checks.
func (w *Workflow) AdminChatID() int64 { return w.cfg.AdminChatID }

// Submit takes ownership of a confirmed order and posts it for review.
func (w *Workflow) Submit(ctx context.Context, ord orders.Order) error {
	poster, err := w.currentPoster()
	if err != nil {
		return err
	}

	w.mu.Lock()
	if _, dup := w.pending[ord.ID]; dup {
		w.mu.Unlock()
		return fmt.Errorf("approval: order %s already submitted", ord.ID)
	}
	if _, done := w.resolved[ord.ID]; done {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyResolved, ord.ID)
	}
	w.pending[ord.ID] = ord
	w.mu.Unlock()

	if err := poster.Post(ctx, w.cfg.AdminChatID, reviewText(ord), reviewKeyboard(ord)); err != nil {
		w.mu.Lock()
		delete(w.pending, ord.ID)
		w.mu.Unlock()
		return fmt.Errorf("post order %s for review: %w", ord.ID, err)
	}

	logger.Info(ctx, "service.approval", "order.submitted",
		slog.String("order_id", ord.ID),
		slog.Int64("user_id", ord.UserID),
		slog.Float64("total", ord.Total),
	)
	return nil
}

// Approve resolves the order as accepted and broadcasts it to the group
// chat. A second decision on the same id returns ErrAlreadyResolved and
// publishes nothing.
func (w *Workflow) Approve(ctx context.Context, orderID string) (orders.Order, error) {
	ord, err := w.resolve(orderID, DecisionApproved)
	if err != nil {
		return orders.Order{}, err
	}

	poster, perr := w.currentPoster()
	if perr == nil {
		if err := poster.Post(ctx, w.cfg.GroupChatID, approvedText(ord), nil); err != nil {
			logger.Error(ctx, "service.approval", "broadcast.failed",
				slog.String("order_id", ord.ID),
				slog.String("err", err.Error()),
			)
		}
	}

	w.record(ctx, ord, DecisionApproved)
	logger.Info(ctx, "service.approval", "order.approved",
		slog.String("order_id", ord.ID),
		slog.String("decision", string(DecisionApproved)),
	)
	return ord, nil
}

// Reject resolves the order as declined. Nothing is broadcast.
func (w *Workflow) Reject(ctx context.Context, orderID string) (orders.Order, error) {
	ord, err := w.resolve(orderID, DecisionRejected)
	if err != nil {
		return orders.Order{}, err
	}

	w.record(ctx, ord, DecisionRejected)
	logger.Info(ctx, "service.approval", "order.rejected",
		slog.String("order_id", ord.ID),
		slog.String("decision", string(DecisionRejected)),
	)
	return ord, nil
}

// resolve atomically moves an order from pending to resolved, enforcing
// at most one successful decision per id.
func (w *Workflow) resolve(orderID string, decision Decision) (orders.Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, done := w.resolved[orderID]; done {
		return orders.Order{}, fmt.Errorf("%w: %s (%s)", ErrAlreadyResolved, orderID, prev)
	}
	ord, ok := w.pending[orderID]
	if !ok {
		return orders.Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	delete(w.pending, orderID)
	w.resolved[orderID] = decision

	switch decision {
	case DecisionApproved:
		ord.Status = orders.StatusApproved
	case DecisionRejected:
		ord.Status = orders.StatusRejected
	}
	return ord, nil
}

func (w *Workflow) record(ctx context.Context, ord orders.Order, decision Decision) {
	if w.archive == nil {
		return
	}
	if err := w.archive.Record(ctx, ord, decision); err != nil {
		logger.Error(ctx, "service.approval", "archive.failed",
			slog.String("order_id", ord.ID),
			slog.String("err", err.Error()),
		)
	}
}

func reviewText(ord orders.Order) string {
	client := "без юзернейма"
	if ord.Username != "" {
		client = "@" + format.EscapeHTML(ord.Username)
	}
	return "🆕 <b>НОВЫЙ ЗАКАЗ!</b>\n\n" +
		fmt.Sprintf("🆔 <b>ID заказа:</b> <code>%s</code>\n", ord.ID) +
		fmt.Sprintf("👤 <b>Клиент:</b> %s\n", client) +
		fmt.Sprintf("🆔 <b>User ID:</b> <code>%d</code>\n", ord.UserID) +
		fmt.Sprintf("🎯 <b>Получатель:</b> %s\n", format.EscapeHTML(ord.Target)) +
		fmt.Sprintf("🔢 <b>Количество:</b> %d\n", ord.Quantity) +
		fmt.Sprintf("💸 <b>К оплате:</b> %s %s\n", format.Amount(ord.Total), ord.Currency) +
		fmt.Sprintf("💳 <b>Оплата:</b> %s", format.EscapeHTML(ord.MethodLabel))
}

// approvedText is built from the structured order, never by re-parsing the
// rendered review message.
func approvedText(ord orders.Order) string {
	return "✅ <b>ЗАКАЗ ПОДТВЕРЖДЕН</b>\n\n" +
		fmt.Sprintf("🆔 <b>ID заказа:</b> <code>%s</code>\n", ord.ID) +
		fmt.Sprintf("🎯 <b>Получатель:</b> %s\n", format.EscapeHTML(ord.Target)) +
		fmt.Sprintf("🔢 <b>Количество:</b> %d\n", ord.Quantity) +
		fmt.Sprintf("💸 <b>К оплате:</b> %s %s\n", format.Amount(ord.Total), ord.Currency) +
		fmt.Sprintf("💳 <b>Оплата:</b> %s", format.EscapeHTML(ord.MethodLabel))
}

func reviewKeyboard(ord orders.Order) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "✅ Подтвердить", Unique: CallbackApprove, Data: ord.ID},
			{Text: "❌ Отклонить", Unique: CallbackReject, Data: ord.ID},
		},
		[]keyboard.InlineBtn{
			{Text: "📨 Написать клиенту", URL: fmt.Sprintf("tg://user?id=%d", ord.UserID)},
		},
	)
}
