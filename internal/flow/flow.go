// Package flow drives the per-user order conversation: collect the
// recipient, the quantity and the payment method, then stage the order for
// confirmation. All transitions go through the FSM session manager; the
// telebot handlers in internal/app stay thin adapters over this package.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/fasters/starshop/core/logger"
	"github.com/fasters/starshop/core/telegram/keyboard"
	"github.com/fasters/starshop/core/telegram/state"
	"github.com/fasters/starshop/internal/orders"
	"github.com/fasters/starshop/internal/pricing"

	tele "gopkg.in/telebot.v4"
)

// Conversation steps of the order flow.
const (
	StateAwaitingTarget       state.State = "order_awaiting_target"
	StateAwaitingQuantity     state.State = "order_awaiting_quantity"
	StateAwaitingMethod       state.State = "order_awaiting_method"
	StateAwaitingOtherMethod  state.State = "order_awaiting_other_method"
	StateAwaitingConfirmation state.State = "order_awaiting_confirmation"
)

// Session temp-data keys.
const (
	tempTarget       = "order_target"
	tempQuantity     = "order_quantity"
	tempPendingOrder = "order_pending_id"
)

// User identifies the conversation owner.
type User struct {
	ID       int64
	Username string
}

// Message is a single outbound HTML message with an optional keyboard.
type Message struct {
	Text   string
	Markup *tele.ReplyMarkup
}

// Approver receives orders after the buyer confirms them. The flow hands
// over ownership: a submitted order is no longer in the registry.
type Approver interface {
	Submit(ctx context.Context, ord orders.Order) error
}

// Config tunes presentation details of the flow.
type Config struct {
	// QuantityOptions are the quick-pick amounts on the quantity keyboard.
	QuantityOptions []int
	// ReviewsURL is linked from the reviews menu button.
	ReviewsURL string
	// PaymentContactURL points the buyer at the admin after confirmation.
	PaymentContactURL string
}

var defaultQuantityOptions = []int{50, 100, 250, 500, 1000}

// Flow is the conversation state machine for one bot instance. It is safe
// for concurrent use across users; per-user serialization is provided by
// the session manager.
type Flow struct {
	states   state.Manager
	registry *orders.Registry
	pricer   *pricing.Engine
	approver Approver
	cfg      Config
}

// New wires the flow with its collaborators.
func New(states state.Manager, registry *orders.Registry, pricer *pricing.Engine, approver Approver, cfg Config) *Flow {
	if len(cfg.QuantityOptions) == 0 {
		cfg.QuantityOptions = defaultQuantityOptions
	}
	return &Flow{
		states:   states,
		registry: registry,
		pricer:   pricer,
		approver: approver,
		cfg:      cfg,
	}
}

// Greet renders the welcome message with the main menu. No state change.
func (f *Flow) Greet(user User) []Message {
	return []Message{{Text: greetingText, Markup: MainMenu()}}
}

// Reviews renders the reviews link. No state change.
func (f *Flow) Reviews(user User) []Message {
	return []Message{{Text: reviewsText(f.cfg.ReviewsURL)}}
}

// Start begins a new order conversation. Re-entering mid-flow discards any
// partially collected fields and restarts from the target step; an already
// confirmed order is not affected.
func (f *Flow) Start(user User) []Message {
	f.states.Clear(user.ID)
	f.states.SetState(user.ID, StateAwaitingTarget)
	return []Message{{Text: askTargetText, Markup: targetKeyboard()}}
}

// SubmitTarget consumes input at the target step: either the buy-for-self
// button or an explicit @handle. Anything else re-prompts without
// advancing.
func (f *Flow) SubmitTarget(user User, text string) []Message {
	text = strings.TrimSpace(text)

	var target string
	switch {
	case text == LabelBuyForSelf:
		if user.Username != "" {
			target = "@" + user.Username
		} else {
			target = fmt.Sprintf("ID: %d", user.ID)
		}
	case strings.HasPrefix(text, "@") && len(text) > 1:
		target = text
	default:
		return []Message{{Text: targetInvalidText}}
	}

	f.states.SetTemp(user.ID, tempTarget, target)
	f.states.SetState(user.ID, StateAwaitingQuantity)
	return []Message{{
		Text:   askQuantityText(f.pricer.MinQuantity()),
		Markup: quantityKeyboard(f.cfg.QuantityOptions),
	}}
}

// SubmitQuantity consumes input at the quantity step. Non-numeric input or
// a quantity outside the configured bounds re-prompts without advancing.
func (f *Flow) SubmitQuantity(user User, text string) []Message {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < f.pricer.MinQuantity() || n > f.pricer.MaxQuantity() {
		return []Message{{Text: quantityInvalidText(f.pricer.MinQuantity(), f.pricer.MaxQuantity())}}
	}

	f.states.SetTemp(user.ID, tempQuantity, n)
	f.states.SetState(user.ID, StateAwaitingMethod)
	return []Message{{Text: askMethodText, Markup: methodKeyboard()}}
}

// SelectMethod consumes input at the payment-method step. The "other"
// option switches to a free-text follow-up; every enumerated method stages
// the order right away.
func (f *Flow) SelectMethod(ctx context.Context, user User, label string) []Message {
	label = strings.TrimSpace(label)
	method, ok := methodByLabel[label]
	if !ok {
		return []Message{{Text: methodInvalidText, Markup: methodKeyboard()}}
	}

	if method == pricing.MethodOther {
		f.states.SetState(user.ID, StateAwaitingOtherMethod)
		return []Message{{Text: askOtherMethodText, Markup: keyboard.RemoveKeyboard()}}
	}

	return f.stageOrder(ctx, user, method, label)
}

// SubmitOtherMethod accepts any text as the payment method description and
// stages the order with the fallback rate. This is the one step where
// input is not validated against the enumerated set.
func (f *Flow) SubmitOtherMethod(ctx context.Context, user User, text string) []Message {
	return f.stageOrder(ctx, user, pricing.MethodOther, strings.TrimSpace(text))
}

func (f *Flow) stageOrder(ctx context.Context, user User, method pricing.Method, label string) []Message {
	target, okT := f.states.GetTemp(user.ID, tempTarget)
	quantity, okQ := f.states.GetTemp(user.ID, tempQuantity)
	targetStr, okTS := target.(string)
	quantityInt, okQI := quantity.(int)
	if !okT || !okQ || !okTS || !okQI {
		// Session lost mid-flow; restart from the beginning.
		return f.Start(user)
	}

	quote, err := f.pricer.Compute(quantityInt, method)
	if err != nil {
		f.states.SetState(user.ID, StateAwaitingQuantity)
		return []Message{{Text: quantityInvalidText(f.pricer.MinQuantity(), f.pricer.MaxQuantity())}}
	}

	ord := orders.Order{
		UserID:      user.ID,
		Username:    user.Username,
		Target:      targetStr,
		Quantity:    quantityInt,
		Method:      method,
		MethodLabel: label,
		Rate:        quote.Rate,
		Currency:    quote.Currency,
		Total:       quote.Total,
		Status:      orders.StatusPendingUserConfirmation,
	}
	id := f.registry.Create(ord)
	ord.ID = id

	f.states.SetTemp(user.ID, tempPendingOrder, id)
	f.states.SetState(user.ID, StateAwaitingConfirmation)

	logger.Info(ctx, "service.flow", "order.staged",
		slog.String("order_id", id),
		slog.Int64("user_id", user.ID),
		slog.String("target", targetStr),
		slog.Int("quantity", quantityInt),
		slog.String("method", string(method)),
		slog.Float64("total", ord.Total),
		slog.String("currency", ord.Currency),
	)

	return []Message{
		{Text: checkOrderText, Markup: keyboard.RemoveKeyboard()},
		{Text: summaryText(ord), Markup: confirmKeyboard(id)},
	}
}

// Confirm resolves a confirm action for the given order id. The registry
// removal is the atomic gate: when a confirm and a cancel race, only one
// side finds the order. The conversation resets to idle either way.
func (f *Flow) Confirm(ctx context.Context, user User, orderID string) ([]Message, error) {
	ord, err := f.registry.Remove(orderID)
	f.states.Clear(user.ID)
	if errors.Is(err, orders.ErrNotFound) {
		logger.Warn(ctx, "service.flow", "order.confirm.stale",
			slog.String("order_id", orderID),
			slog.Int64("user_id", user.ID),
		)
		return []Message{{Text: orderNotFoundText, Markup: MainMenu()}}, nil
	}

	ord.Status = orders.StatusPendingAdminDecision
	if err := f.approver.Submit(ctx, ord); err != nil {
		// Delivery failure, not a stale action: tell the buyer to retry.
		return []Message{{Text: submitFailedText, Markup: MainMenu()}},
			fmt.Errorf("submit order %s for approval: %w", orderID, err)
	}

	logger.Info(ctx, "service.flow", "order.confirmed",
		slog.String("order_id", orderID),
		slog.Int64("user_id", user.ID),
	)
	return []Message{
		{Text: orderCreatedText, Markup: MainMenu()},
		{Text: paymentInstructionsText(orderID, f.cfg.PaymentContactURL)},
	}, nil
}

// Cancel resolves a cancel action for the given order id. A stale id is a
// no-op beyond resetting the conversation.
func (f *Flow) Cancel(ctx context.Context, user User, orderID string) []Message {
	_, err := f.registry.Remove(orderID)
	f.states.Clear(user.ID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil
	}

	logger.Info(ctx, "service.flow", "order.cancelled",
		slog.String("order_id", orderID),
		slog.Int64("user_id", user.ID),
	)
	return []Message{{Text: orderCancelledText, Markup: MainMenu()}}
}
