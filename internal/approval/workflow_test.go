package approval

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasters/starshop/internal/orders"

	tele "gopkg.in/telebot.v4"
)

type post struct {
	chatID int64
	text   string
	markup *tele.ReplyMarkup
}

type fakePoster struct {
	mu    sync.Mutex
	posts []post
	err   error
}

func (p *fakePoster) Post(_ context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.posts = append(p.posts, post{chatID: chatID, text: text, markup: markup})
	return nil
}

func (p *fakePoster) sent() []post {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]post(nil), p.posts...)
}

type record struct {
	order    orders.Order
	decision Decision
}

type fakeArchive struct {
	mu      sync.Mutex
	records []record
}

func (a *fakeArchive) Record(_ context.Context, ord orders.Order, decision Decision) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record{order: ord, decision: decision})
	return nil
}

func (a *fakeArchive) recorded() []record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]record(nil), a.records...)
}

const (
	adminChat = int64(-100)
	groupChat = int64(-200)
)

func newTestWorkflow() (*Workflow, *fakePoster, *fakeArchive) {
	poster := &fakePoster{}
	arch := &fakeArchive{}
	wf := New(Config{AdminChatID: adminChat, GroupChatID: groupChat}, arch)
	wf.SetPoster(poster)
	return wf, poster, arch
}

func testOrder(id string) orders.Order {
	return orders.Order{
		ID:          id,
		UserID:      7,
		Username:    "buyer",
		Target:      "@buyer",
		Quantity:    100,
		MethodLabel: "💳 Банковская карта",
		Rate:        1.7,
		Currency:    "RUB",
		Total:       170,
		Status:      orders.StatusPendingAdminDecision,
	}
}

func TestSubmitPostsReview(t *testing.T) {
	wf, poster, _ := newTestWorkflow()

	require.NoError(t, wf.Submit(context.Background(), testOrder("o-1")))

	posts := poster.sent()
	require.Len(t, posts, 1)
	assert.Equal(t, adminChat, posts[0].chatID)
	assert.Contains(t, posts[0].text, "o-1")
	assert.Contains(t, posts[0].text, "@buyer")
	require.NotNil(t, posts[0].markup)
	require.Len(t, posts[0].markup.InlineKeyboard, 2)
}

func TestSubmitWithoutPoster(t *testing.T) {
	wf := New(Config{AdminChatID: adminChat, GroupChatID: groupChat}, nil)
	assert.Error(t, wf.Submit(context.Background(), testOrder("o-1")))
}

func TestSubmitDuplicate(t *testing.T) {
	wf, _, _ := newTestWorkflow()

	require.NoError(t, wf.Submit(context.Background(), testOrder("o-1")))
	assert.Error(t, wf.Submit(context.Background(), testOrder("o-1")))
}

func TestSubmitPostFailureRollsBack(t *testing.T) {
	wf, poster, _ := newTestWorkflow()
	poster.err = errors.New("chat unreachable")

	require.Error(t, wf.Submit(context.Background(), testOrder("o-1")))

	poster.err = nil
	_, err := wf.Approve(context.Background(), "o-1")
	assert.ErrorIs(t, err, ErrUnknownOrder)

	// The failed submit left no trace, so it can be retried.
	require.NoError(t, wf.Submit(context.Background(), testOrder("o-1")))
}

func TestApproveBroadcastsOnce(t *testing.T) {
	wf, poster, arch := newTestWorkflow()
	require.NoError(t, wf.Submit(context.Background(), testOrder("o-1")))

	ord, err := wf.Approve(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusApproved, ord.Status)

	posts := poster.sent()
	require.Len(t, posts, 2)
	assert.Equal(t, groupChat, posts[1].chatID)
	assert.Contains(t, posts[1].text, "ЗАКАЗ ПОДТВЕРЖДЕН")
	assert.Contains(t, posts[1].text, "o-1")
	assert.Nil(t, posts[1].markup)

	records := arch.recorded()
	require.Len(t, records, 1)
	assert.Equal(t, DecisionApproved, records[0].decision)

	// The second decision must not publish or record anything.
	_, err = wf.Approve(context.Background(), "o-1")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	_, err = wf.Reject(context.Background(), "o-1")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Len(t, poster.sent(), 2)
	assert.Len(t, arch.recorded(), 1)
}

func TestRejectDoesNotBroadcast(t *testing.T) {
	wf, poster, arch := newTestWorkflow()
	require.NoError(t, wf.Submit(context.Background(), testOrder("o-1")))

	ord, err := wf.Reject(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusRejected, ord.Status)

	// Only the original review post, no group message.
	assert.Len(t, poster.sent(), 1)

	records := arch.recorded()
	require.Len(t, records, 1)
	assert.Equal(t, DecisionRejected, records[0].decision)

	_, err = wf.Approve(context.Background(), "o-1")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestDecisionOnUnknownOrder(t *testing.T) {
	wf, _, _ := newTestWorkflow()

	_, err := wf.Approve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownOrder)
	_, err = wf.Reject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestConcurrentDecisionsResolveOnce(t *testing.T) {
	wf, poster, arch := newTestWorkflow()
	require.NoError(t, wf.Submit(context.Background(), testOrder("o-1")))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = wf.Approve(context.Background(), "o-1")
			} else {
				_, errs[i] = wf.Reject(context.Background(), "o-1")
			}
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyResolved)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, arch.recorded(), 1)
	assert.LessOrEqual(t, len(poster.sent()), 2)
}
