package helpers

import (
	"fmt"
	"testing"

	"github.com/fasters/starshop/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// sendRecorder implements the slice of tele.Context the send helpers touch.
type sendRecorder struct {
	tele.Context
	sent []string
	opts []*tele.SendOptions
	kv   map[string]interface{}
}

func newSendRecorder() *sendRecorder {
	return &sendRecorder{kv: make(map[string]interface{})}
}

func (r *sendRecorder) Send(what interface{}, opts ...interface{}) error {
	text, _ := what.(string)
	r.sent = append(r.sent, text)
	var so *tele.SendOptions
	if len(opts) > 0 {
		so, _ = opts[0].(*tele.SendOptions)
	}
	r.opts = append(r.opts, so)
	return nil
}

func (r *sendRecorder) Get(key string) interface{}    { return r.kv[key] }
func (r *sendRecorder) Set(key string, v interface{}) { r.kv[key] = v }
func (r *sendRecorder) Update() tele.Update           { return tele.Update{ID: 1} }
func (r *sendRecorder) Sender() *tele.User            { return &tele.User{ID: 7} }
func (r *sendRecorder) Chat() *tele.Chat              { return &tele.Chat{ID: 7} }

func TestSendHTMLBatchSynchronous(t *testing.T) {
	SetDispatcher(nil)
	rec := newSendRecorder()
	markup := &tele.ReplyMarkup{}

	err := SendHTMLBatch(rec, []HTMLMessage{
		{Text: "first"},
		{Text: "second", Markup: markup},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(rec.sent) != 2 || rec.sent[0] != "first" || rec.sent[1] != "second" {
		t.Fatalf("sent = %v", rec.sent)
	}
	if rec.opts[1] == nil || rec.opts[1].ParseMode != tele.ModeHTML {
		t.Fatalf("opts[1] = %+v, want HTML parse mode", rec.opts[1])
	}
	if rec.opts[1].ReplyMarkup != markup {
		t.Fatal("markup not forwarded")
	}
}

// A batch is one dispatcher job, so its messages cannot be interleaved
// by concurrent workers.
func TestSendHTMLBatchOrderedAcrossWorkers(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 4, QueueSize: 16})
	SetDispatcher(d)
	defer SetDispatcher(nil)

	rec := newSendRecorder()
	var batch []HTMLMessage
	for i := 0; i < 8; i++ {
		batch = append(batch, HTMLMessage{Text: fmt.Sprintf("msg-%d", i)})
	}
	if err := SendHTMLBatch(rec, batch); err != nil {
		t.Fatalf("batch: %v", err)
	}
	d.Close()

	if len(rec.sent) != len(batch) {
		t.Fatalf("sent %d messages, want %d", len(rec.sent), len(batch))
	}
	for i, text := range rec.sent {
		if want := fmt.Sprintf("msg-%d", i); text != want {
			t.Fatalf("sent[%d] = %s, want %s", i, text, want)
		}
	}
}

func TestSendHTMLBatchEmpty(t *testing.T) {
	SetDispatcher(nil)
	rec := newSendRecorder()
	if err := SendHTMLBatch(rec, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if len(rec.sent) != 0 {
		t.Fatalf("sent = %v, want none", rec.sent)
	}
}
