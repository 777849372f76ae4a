package orders

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasters/starshop/internal/pricing"
)

func newTestOrder(userID int64) Order {
	return Order{
		UserID:   userID,
		Username: "buyer",
		Target:   "@buyer",
		Quantity: 100,
		Method:   pricing.MethodCard,
		Rate:     1.7,
		Currency: "RUB",
		Total:    170,
		Status:   StatusPendingUserConfirmation,
	}
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := r.Create(newTestOrder(int64(i)))
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "id %s assigned twice", id)
		seen[id] = struct{}{}
	}
	assert.Equal(t, 100, r.Len())
}

func TestGetReturnsStoredOrder(t *testing.T) {
	r := NewRegistry()
	id := r.Create(newTestOrder(7))

	ord, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, ord.ID)
	assert.Equal(t, int64(7), ord.UserID)
	assert.False(t, ord.CreatedAt.IsZero())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveIsAtomic(t *testing.T) {
	r := NewRegistry()
	id := r.Create(newTestOrder(1))

	ord, err := r.Remove(id)
	require.NoError(t, err)
	assert.Equal(t, id, ord.ID)

	_, err = r.Remove(id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, r.Len())
}

// Racing removals of the same id must hand the order to exactly one caller.
func TestRemoveConcurrentExactlyOneWins(t *testing.T) {
	r := NewRegistry()

	for i := 0; i < 50; i++ {
		id := r.Create(newTestOrder(int64(i)))

		var wins int64
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := r.Remove(id); err == nil {
					atomic.AddInt64(&wins, 1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int64(1), wins)
	}
	assert.Equal(t, 0, r.Len())
}
