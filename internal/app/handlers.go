package app

import (
	"errors"

	"github.com/fasters/starshop/core/telegram/callbacks"
	tghelpers "github.com/fasters/starshop/core/telegram/helpers"
	"github.com/fasters/starshop/core/telegram/state"
	"github.com/fasters/starshop/internal/approval"
	"github.com/fasters/starshop/internal/flow"

	tele "gopkg.in/telebot.v4"
)

func userOf(c tele.Context) flow.User {
	sender := c.Sender()
	if sender == nil {
		return flow.User{}
	}
	return flow.User{ID: sender.ID, Username: sender.Username}
}

// sendMessages ships a flow reply as one batch: paired messages such as
// the summary after the "check your order" line must arrive in order.
func sendMessages(c tele.Context, msgs []flow.Message) error {
	batch := make([]tghelpers.HTMLMessage, 0, len(msgs))
	for _, m := range msgs {
		batch = append(batch, tghelpers.HTMLMessage{Text: m.Text, Markup: m.Markup})
	}
	return tghelpers.SendHTMLBatch(c, batch)
}

func (a *App) handleStart(c tele.Context) error {
	u := userOf(c)
	a.states.Clear(u.ID)
	return sendMessages(c, a.flow.Greet(u))
}

func (a *App) handleOrder(c tele.Context) error {
	return sendMessages(c, a.flow.Start(userOf(c)))
}

func (a *App) handleReviews(c tele.Context) error {
	return sendMessages(c, a.flow.Reviews(userOf(c)))
}

// stateStep adapts a flow step to a telebot handler. Menu buttons and
// /start interrupt any conversation step: the label routes take priority
// over the pending state, matching what the reply keyboard promises.
func (a *App) stateStep(step func(tele.Context, flow.User, string) []Message) tele.HandlerFunc {
	return func(c tele.Context) error {
		u := userOf(c)
		text := c.Text()
		switch text {
		case "/start":
			return a.handleStart(c)
		case "/order", flow.LabelMakeOrder:
			return a.handleOrder(c)
		case "/reviews", flow.LabelShowReviews:
			return a.handleReviews(c)
		}
		return sendMessages(c, step(c, u, text))
	}
}

// Message aliases the flow message type for the step adapters.
type Message = flow.Message

func (a *App) registerStates() {
	state.RegisterHandler(flow.StateAwaitingTarget, a.stateStep(
		func(_ tele.Context, u flow.User, text string) []Message {
			return a.flow.SubmitTarget(u, text)
		}))
	state.RegisterHandler(flow.StateAwaitingQuantity, a.stateStep(
		func(_ tele.Context, u flow.User, text string) []Message {
			return a.flow.SubmitQuantity(u, text)
		}))
	state.RegisterHandler(flow.StateAwaitingMethod, a.stateStep(
		func(c tele.Context, u flow.User, text string) []Message {
			return a.flow.SelectMethod(tghelpers.BuildContext(c), u, text)
		}))
	state.RegisterHandler(flow.StateAwaitingOtherMethod, a.stateStep(
		func(c tele.Context, u flow.User, text string) []Message {
			return a.flow.SubmitOtherMethod(tghelpers.BuildContext(c), u, text)
		}))
	// Text during the confirmation step re-sends nothing; the inline
	// buttons are the only way forward, but menu labels still reset.
	state.RegisterHandler(flow.StateAwaitingConfirmation, a.stateStep(
		func(tele.Context, flow.User, string) []Message { return nil }))
}

func (a *App) registerCallbacks(reg callbackRegistry) error {
	regs := []struct {
		key     string
		handler tele.HandlerFunc
	}{
		{flow.CallbackConfirm, a.handleConfirm},
		{flow.CallbackCancel, a.handleCancel},
		{approval.CallbackApprove, a.handleApprove},
		{approval.CallbackReject, a.handleReject},
	}
	for _, r := range regs {
		if err := reg.RegisterCallback(r.key, r.handler); err != nil {
			return err
		}
	}
	return nil
}

type callbackRegistry interface {
	RegisterCallback(key string, handler tele.HandlerFunc) error
}

func (a *App) handleConfirm(c tele.Context) error {
	orderID := callbacks.CallbackPayload(c)
	msgs, err := a.flow.Confirm(tghelpers.BuildContext(c), userOf(c), orderID)
	if sendErr := sendMessages(c, msgs); sendErr != nil {
		return sendErr
	}
	return err
}

func (a *App) handleCancel(c tele.Context) error {
	orderID := callbacks.CallbackPayload(c)
	msgs := a.flow.Cancel(tghelpers.BuildContext(c), userOf(c), orderID)
	return sendMessages(c, msgs)
}

// Admin decision callbacks only act inside the review chat; the buttons
// cannot leak there, but forwarded messages could.
func (a *App) fromAdminChat(c tele.Context) bool {
	chat := c.Chat()
	return chat != nil && chat.ID == a.approval.AdminChatID()
}

func (a *App) handleApprove(c tele.Context) error {
	if !a.fromAdminChat(c) {
		return nil
	}
	orderID := callbacks.CallbackPayload(c)
	_, err := a.approval.Approve(tghelpers.BuildContext(c), orderID)
	switch {
	case errors.Is(err, approval.ErrAlreadyResolved):
		return tghelpers.SendText(c, "⚠️ Заказ уже обработан.")
	case errors.Is(err, approval.ErrUnknownOrder):
		return tghelpers.SendText(c, "⚠️ Заказ не найден.")
	case err != nil:
		return err
	}
	_ = c.Delete()
	return tghelpers.SendText(c, "✅ Заказ подтверждён и отправлен в группу!")
}

func (a *App) handleReject(c tele.Context) error {
	if !a.fromAdminChat(c) {
		return nil
	}
	orderID := callbacks.CallbackPayload(c)
	_, err := a.approval.Reject(tghelpers.BuildContext(c), orderID)
	switch {
	case errors.Is(err, approval.ErrAlreadyResolved):
		return tghelpers.SendText(c, "⚠️ Заказ уже обработан.")
	case errors.Is(err, approval.ErrUnknownOrder):
		return tghelpers.SendText(c, "⚠️ Заказ не найден.")
	case err != nil:
		return err
	}
	_ = c.Delete()
	return tghelpers.SendText(c, "❌ Заказ отклонён и удалён.")
}
