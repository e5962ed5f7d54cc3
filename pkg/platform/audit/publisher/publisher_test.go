package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "veriflow/pkg/platform/audit"
	"veriflow/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	requestID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		RequestID: requestID,
		Action:    string(audit.EventDecisionMade),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventDecisionMade), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category, "category derived from action")
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	requestID := uuid.NewString()
	for i := range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			RequestID: requestID,
			Action:    string(audit.EventVendorAttempt),
			Attempt:   i + 1,
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByRequest(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, events, 10, "all events should be drained on close")
	for i, e := range events {
		assert.Equal(t, i+1, e.Attempt, "append order preserved")
	}
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{RequestID: "r", Action: string(audit.EventVendorAttempt)})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{RequestID: "r1", Action: string(audit.EventRuleEvaluated)}))
	after := time.Now()

	events, err := pub.List(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.False(t, events[0].Timestamp.After(after))
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{RequestID: "r2", Action: string(audit.EventDecisionMade), Timestamp: custom}))

	events, err := pub.List(context.Background(), "r2")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, custom, events[0].Timestamp)
}

func TestPublisher_CancelledContextInAsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{RequestID: "r3", Action: string(audit.EventVendorAttempt)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublisher_EmitAllKeepsTrailOrder(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	trail := []audit.Event{
		{RequestID: "r4", Action: string(audit.EventVendorAttempt)},
		{RequestID: "r4", Action: string(audit.EventRuleEvaluated)},
		{RequestID: "r4", Action: string(audit.EventDecisionMade)},
	}
	require.NoError(t, pub.EmitAll(context.Background(), trail))

	events, err := pub.List(context.Background(), "r4")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, string(audit.EventVendorAttempt), events[0].Action)
	assert.Equal(t, string(audit.EventRuleEvaluated), events[1].Action)
	assert.Equal(t, string(audit.EventDecisionMade), events[2].Action)
}
