package app

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// botPoster delivers approval-workflow messages to arbitrary chats. It
// sends synchronously: the workflow rolls back a submission whose review
// post failed, and the dispatcher's Enqueue only reports queue admission,
// never the outcome of the send itself.
type botPoster struct {
	send func(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

func newBotPoster(bot *tele.Bot) *botPoster {
	return &botPoster{send: bot.Send}
}

func (p *botPoster) Post(_ context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error {
	_, err := p.send(tele.ChatID(chatID), text, &tele.SendOptions{
		ParseMode:   tele.ModeHTML,
		ReplyMarkup: markup,
	})
	return err
}
