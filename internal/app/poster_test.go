package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

// The approval workflow relies on Post surfacing the delivery error in the
// same call so a failed review post rolls the submission back; a queued
// send that reports success on admission would strand the order.
func TestPosterReturnsSendErrorSynchronously(t *testing.T) {
	sendErr := errors.New("telegram: chat not found (400)")
	p := &botPoster{
		send: func(tele.Recipient, interface{}, ...interface{}) (*tele.Message, error) {
			return nil, sendErr
		},
	}

	err := p.Post(context.Background(), -100, "review", nil)
	assert.ErrorIs(t, err, sendErr)
}

func TestPosterSendsHTMLWithMarkup(t *testing.T) {
	markup := &tele.ReplyMarkup{}
	var (
		gotTo   tele.Recipient
		gotWhat interface{}
		gotOpts []interface{}
	)
	p := &botPoster{
		send: func(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
			gotTo, gotWhat, gotOpts = to, what, opts
			return &tele.Message{}, nil
		},
	}

	require.NoError(t, p.Post(context.Background(), -200, "<b>заказ</b>", markup))
	assert.Equal(t, tele.ChatID(-200), gotTo)
	assert.Equal(t, "<b>заказ</b>", gotWhat)
	require.Len(t, gotOpts, 1)
	opts, ok := gotOpts[0].(*tele.SendOptions)
	require.True(t, ok)
	assert.Equal(t, tele.ModeHTML, opts.ParseMode)
	assert.Same(t, markup, opts.ReplyMarkup)
}
