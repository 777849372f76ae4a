package flow

import (
	"fmt"
	"strconv"

	"github.com/fasters/starshop/core/telegram/format"
	"github.com/fasters/starshop/core/telegram/keyboard"
	"github.com/fasters/starshop/internal/orders"
	"github.com/fasters/starshop/internal/pricing"

	tele "gopkg.in/telebot.v4"
)

// Reply keyboard labels. These double as command aliases so the main menu
// works both via buttons and typed text.
const (
	LabelMakeOrder   = "🛒 Сделать заказ"
	LabelShowReviews = "📝 Посмотреть отзывы"
	LabelBuyForSelf  = "🔹 Покупаю себе"

	labelMethodCard     = "💳 Банковская карта"
	labelMethodYooMoney = "📱 ЮMoney"
	labelMethodCrypto   = "🪙 Криптовалюта (USDT)"
	labelMethodOther    = "✏️ Другой способ"
)

// Callback uniques for the confirmation step; payload carries the order id.
const (
	CallbackConfirm = "order_confirm"
	CallbackCancel  = "order_cancel"
)

var methodByLabel = map[string]pricing.Method{
	labelMethodCard:     pricing.MethodCard,
	labelMethodYooMoney: pricing.MethodYooMoney,
	labelMethodCrypto:   pricing.MethodCrypto,
	labelMethodOther:    pricing.MethodOther,
}

var methodLabels = []string{
	labelMethodCard,
	labelMethodYooMoney,
	labelMethodCrypto,
	labelMethodOther,
}

// MainMenu is the reply keyboard shown outside of an active order flow.
func MainMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{LabelMakeOrder},
		[]string{LabelShowReviews},
	)
}

func targetKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{LabelBuyForSelf})
}

func quantityKeyboard(options []int) *tele.ReplyMarkup {
	labels := make([]string, 0, len(options))
	for _, q := range options {
		labels = append(labels, strconv.Itoa(q))
	}
	return keyboard.ReplyButtons(keyboard.ChunkLabels(labels, 3)...)
}

func methodKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(keyboard.ChunkLabels(methodLabels, 2)...)
}

func confirmKeyboard(orderID string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "✅ Подтвердить", Unique: CallbackConfirm, Data: orderID},
		{Text: "❌ Отменить", Unique: CallbackCancel, Data: orderID},
	})
}

const (
	greetingText  = "🌟 <b>Добро пожаловать в магазин звёзд!</b>"
	askTargetText = "✏️ <b>Введите username получателя</b> (начинается с @)\n" +
		"Или нажмите кнопку ниже если покупаете себе:"
	targetInvalidText  = "❌ Username должен начинаться с @!"
	askMethodText      = "💳 <b>Выберите способ оплаты:</b>"
	methodInvalidText  = "❌ Выберите способ оплаты кнопкой ниже!"
	submitFailedText   = "⚠️ Не удалось оформить заказ, попробуйте позже."
	askOtherMethodText = "✏️ <b>Укажите ваш способ оплаты:</b>"
	checkOrderText     = "✅ <b>Проверьте ваш заказ:</b>"
	orderCreatedText   = "💸 <b>Заказ создан</b>"
	orderNotFoundText  = "⚠️ Заказ не найден!"
	orderCancelledText = "❌ <b>Заказ отменен</b>"
)

func reviewsText(url string) string {
	return "🔍 Наши отзывы: " + url
}

func askQuantityText(min int) string {
	return fmt.Sprintf("🔢 <b>Выберите количество или введите своё</b> (от %d):", min)
}

func quantityInvalidText(min, max int) string {
	return fmt.Sprintf("❌ Введите число от %d до %d!", min, max)
}

func summaryText(ord orders.Order) string {
	return "📋 <b>Детали заказа:</b>\n\n" +
		fmt.Sprintf("🎯 <b>Получатель:</b> %s\n", format.EscapeHTML(ord.Target)) +
		fmt.Sprintf("🔢 <b>Количество:</b> %d\n", ord.Quantity) +
		fmt.Sprintf("💳 <b>Способ оплаты:</b> %s\n", format.EscapeHTML(ord.MethodLabel)) +
		fmt.Sprintf("💸 <b>К оплате:</b> %s %s\n", format.Amount(ord.Total), ord.Currency) +
		"<i>Подтвердите или отмените заказ</i>"
}

func paymentInstructionsText(orderID, contactURL string) string {
	return "💸 <b>Для завершения покупки</b> перешлите ID вашего заказа:\n" +
		fmt.Sprintf("<code>%s</code>\n", orderID) +
		fmt.Sprintf("👉 <a href='%s'>Сюда</a> (нажмите, чтобы перейти)", contactURL)
}
