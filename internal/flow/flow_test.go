package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasters/starshop/core/telegram/state"
	"github.com/fasters/starshop/internal/orders"
	"github.com/fasters/starshop/internal/pricing"
)

type captureApprover struct {
	mu     sync.Mutex
	orders []orders.Order
	err    error
}

func (a *captureApprover) Submit(_ context.Context, ord orders.Order) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.orders = append(a.orders, ord)
	return nil
}

func (a *captureApprover) submitted() []orders.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]orders.Order(nil), a.orders...)
}

type testFlow struct {
	flow     *Flow
	states   state.Manager
	registry *orders.Registry
	approver *captureApprover
}

func newTestFlow(t *testing.T) *testFlow {
	t.Helper()
	approver := &captureApprover{}
	states := state.NewMemoryManager()
	registry := orders.NewRegistry()
	return &testFlow{
		flow: New(states, registry, pricing.NewEngine(pricing.Config{}), approver, Config{
			ReviewsURL:        "https://t.me/reviews",
			PaymentContactURL: "https://t.me/admin",
		}),
		states:   states,
		registry: registry,
		approver: approver,
	}
}

// stage drives a fresh conversation up to the confirmation step and
// returns the pending order id.
func (tf *testFlow) stage(t *testing.T, u User, quantity, methodLabel string) string {
	t.Helper()
	tf.flow.Start(u)
	msgs := tf.flow.SubmitTarget(u, LabelBuyForSelf)
	require.Len(t, msgs, 1)
	msgs = tf.flow.SubmitQuantity(u, quantity)
	require.Len(t, msgs, 1)
	msgs = tf.flow.SelectMethod(context.Background(), u, methodLabel)
	require.Len(t, msgs, 2)

	id, ok := tf.states.GetTemp(u.ID, tempPendingOrder)
	require.True(t, ok)
	return id.(string)
}

func TestFullOrderFlowCrypto(t *testing.T) {
	tf := newTestFlow(t)
	u := User{ID: 7} // no username: target falls back to the numeric id

	msgs := tf.flow.Start(u)
	require.Len(t, msgs, 1)
	assert.Equal(t, askTargetText, msgs[0].Text)
	assert.Equal(t, StateAwaitingTarget, tf.states.GetState(u.ID))

	msgs = tf.flow.SubmitTarget(u, LabelBuyForSelf)
	require.Len(t, msgs, 1)
	assert.Equal(t, StateAwaitingQuantity, tf.states.GetState(u.ID))

	msgs = tf.flow.SubmitQuantity(u, "100")
	require.Len(t, msgs, 1)
	assert.Equal(t, askMethodText, msgs[0].Text)

	msgs = tf.flow.SelectMethod(context.Background(), u, labelMethodCrypto)
	require.Len(t, msgs, 2)
	assert.Equal(t, checkOrderText, msgs[0].Text)
	assert.Contains(t, msgs[1].Text, "140.00 RUB")
	assert.Contains(t, msgs[1].Text, "ID: 7")
	require.NotNil(t, msgs[1].Markup)
	assert.Equal(t, StateAwaitingConfirmation, tf.states.GetState(u.ID))
	assert.Equal(t, 1, tf.registry.Len())

	id, ok := tf.states.GetTemp(u.ID, tempPendingOrder)
	require.True(t, ok)
	orderID := id.(string)

	msgs, err := tf.flow.Confirm(context.Background(), u, orderID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, orderCreatedText, msgs[0].Text)
	assert.Contains(t, msgs[1].Text, orderID)

	assert.Equal(t, 0, tf.registry.Len())
	assert.False(t, tf.states.InProgress(u.ID))

	submitted := tf.approver.submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, orderID, submitted[0].ID)
	assert.Equal(t, orders.StatusPendingAdminDecision, submitted[0].Status)
	assert.Equal(t, 140.00, submitted[0].Total)
	assert.Equal(t, pricing.MethodCrypto, submitted[0].Method)
}

func TestSubmitTargetValidation(t *testing.T) {
	tf := newTestFlow(t)
	u := User{ID: 1, Username: "buyer"}
	tf.flow.Start(u)

	msgs := tf.flow.SubmitTarget(u, "nick-without-at")
	require.Len(t, msgs, 1)
	assert.Equal(t, targetInvalidText, msgs[0].Text)
	assert.Equal(t, StateAwaitingTarget, tf.states.GetState(u.ID))

	msgs = tf.flow.SubmitTarget(u, "@friend")
	require.Len(t, msgs, 1)
	assert.Equal(t, StateAwaitingQuantity, tf.states.GetState(u.ID))
	target, ok := tf.states.GetTemp(u.ID, tempTarget)
	require.True(t, ok)
	assert.Equal(t, "@friend", target)
}

func TestSubmitTargetSelfUsesUsername(t *testing.T) {
	tf := newTestFlow(t)
	u := User{ID: 1, Username: "buyer"}
	tf.flow.Start(u)

	tf.flow.SubmitTarget(u, LabelBuyForSelf)
	target, ok := tf.states.GetTemp(u.ID, tempTarget)
	require.True(t, ok)
	assert.Equal(t, "@buyer", target)
}

func TestSubmitQuantityRejectsBadInput(t *testing.T) {
	tf := newTestFlow(t)
	u := User{ID: 1}
	tf.flow.Start(u)
	tf.flow.SubmitTarget(u, LabelBuyForSelf)

	for _, input := range []string{"abc", "49", "0", "-5", "1000001"} {
		msgs := tf.flow.SubmitQuantity(u, input)
		require.Len(t, msgs, 1, "input %q", input)
		assert.True(t, strings.HasPrefix(msgs[0].Text, "❌"), "input %q", input)
		assert.Equal(t, StateAwaitingQuantity, tf.states.GetState(u.ID), "input %q", input)
	}
}

func TestSelectMethodUnknownReprompts(t *testing.T) {
	tf := newTestFlow(t)
	u := User{ID: 1}
	tf.flow.Start(u)
	tf.flow.SubmitTarget(u, LabelBuyForSelf)
	tf.flow.SubmitQuantity(u, "100")

	msgs := tf.flow.SelectMethod(context.Background(), u, "наличные")
	require.Len(t, msgs, 1)
	assert.Equal(t, methodInvalidText, msgs[0].Text)
	require.NotNil(t, msgs[0].Markup)
	assert.Equal(t, StateAwaitingMethod, tf.states.GetState(u.ID))
	assert.Equal(t, 0, tf.registry.Len())
}

func TestOtherMethodPath(t *testing.T) {
	tf := newTestFlow(t)
	u := User{ID: 1, Username: "buyer"}
	tf.flow.Start(u)
	tf.flow.SubmitTarget(u, LabelBuyForSelf)
	tf.flow.SubmitQuantity(u, "100")

	msgs := tf.flow.SelectMethod(context.Background(), u, labelMethodOther)
	require.Len(t, msgs, 1)
	assert.Equal(t, askOtherMethodText, msgs[0].Text)
	assert.Equal(t, StateAwaitingOtherMethod, tf.states.GetState(u.ID))

	msgs = tf.flow.SubmitOtherMethod(context.Background(), u, "перевод по СБП")
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Text, "перевод по СБП")
	assert.Contains(t, msgs[1].Text, "170.00 RUB") // fallback rate

	id, ok := tf.states.GetTemp(u.ID, tempPendingOrder)
	require.True(t, ok)
	ord, err := tf.registry.Get(id.(string))
	require.NoError(t, err)
	assert.Equal(t, pricing.MethodOther, ord.Method)
	assert.Equal(t, "перевод по СБП", ord.MethodLabel)
}

func TestStartMidFlowDiscardsProgress(t *testing.T) {
	tf := newTestFlow(t)
	u := User{ID: 1}
	tf.flow.Start(u)
	tf.flow.SubmitTarget(u, "@friend")
	tf.flow.SubmitQuantity(u, "250")

	tf.flow.Start(u)
	assert.Equal(t, StateAwaitingTarget, tf.states.GetState(u.ID))
	_, ok := tf.states.GetTemp(u.ID, tempTarget)
	assert.False(t, ok)
	_, ok = tf.states.GetTemp(u.ID, tempQuantity)
	assert.False(t, ok)
}

func TestConfirmStaleOrder(t *testing.T) {
	tf := newTestFlow(t)
	u := User{ID: 1}

	msgs, err := tf.flow.Confirm(context.Background(), u, "deadbeef")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, orderNotFoundText, msgs[0].Text)
	assert.Empty(t, tf.approver.submitted())
}

func TestCancelRemovesOrder(t *testing.T) {
	tf := newTestFlow(t)
	u := User{ID: 1}
	orderID := tf.stage(t, u, "100", labelMethodCard)

	msgs := tf.flow.Cancel(context.Background(), u, orderID)
	require.Len(t, msgs, 1)
	assert.Equal(t, orderCancelledText, msgs[0].Text)
	assert.Equal(t, 0, tf.registry.Len())
	assert.False(t, tf.states.InProgress(u.ID))

	// The second resolution of the same id is silently ignored.
	assert.Nil(t, tf.flow.Cancel(context.Background(), u, orderID))
}

func TestCancelAfterConfirmIsNoop(t *testing.T) {
	tf := newTestFlow(t)
	u := User{ID: 1}
	orderID := tf.stage(t, u, "100", labelMethodCard)

	_, err := tf.flow.Confirm(context.Background(), u, orderID)
	require.NoError(t, err)

	assert.Nil(t, tf.flow.Cancel(context.Background(), u, orderID))
	require.Len(t, tf.approver.submitted(), 1)
}

func TestConfirmSubmitErrorPropagates(t *testing.T) {
	tf := newTestFlow(t)
	tf.approver.err = errors.New("review chat unreachable")
	u := User{ID: 1}
	orderID := tf.stage(t, u, "100", labelMethodCard)

	msgs, err := tf.flow.Confirm(context.Background(), u, orderID)
	require.Error(t, err)
	require.Len(t, msgs, 1)
	// A delivery failure must not masquerade as a stale-order notice.
	assert.Equal(t, submitFailedText, msgs[0].Text)
	assert.NotEqual(t, orderNotFoundText, msgs[0].Text)
	assert.Equal(t, 0, tf.registry.Len())
}
