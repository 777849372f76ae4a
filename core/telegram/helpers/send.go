package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/fasters/starshop/core/logger"
	"github.com/fasters/starshop/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// HTMLMessage is one entry of a SendHTMLBatch call.
type HTMLMessage struct {
	Text   string
	Markup *tele.ReplyMarkup
}

// SendHTMLBatch sends several HTML messages as a single outbound job so
// they reach the chat in order. Separate Enqueue calls may be picked up
// by different dispatcher workers and arrive interleaved.
func SendHTMLBatch(c tele.Context, msgs []HTMLMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return sendAsync(c, "send.html_batch", "sendMessage", func() error {
		for _, m := range msgs {
			opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: m.Markup}
			if err := c.Send(m.Text, opts); err != nil {
				return err
			}
		}
		return nil
	})
}
