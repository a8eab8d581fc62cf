package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"multisig-hub.backend/internal/domain/entities"
)

func TestQuietEventSource(t *testing.T) {
	sink := make(chan entities.ChainEvent, 1)
	sub, err := NewQuietEventSource().Subscribe(context.Background(), nil, 42, sink)
	require.NoError(t, err)

	select {
	case <-sink:
		t.Fatal("quiet source delivered an event")
	case err := <-sub.Err():
		t.Fatalf("subscription ended early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	sub.Unsubscribe()
	_, open := <-sub.Err()
	assert.False(t, open)
	assert.Equal(t, uint64(42), sub.Resume())
}

func TestQuietEventSource_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := NewQuietEventSource().Subscribe(ctx, nil, 0, make(chan entities.ChainEvent))
	require.NoError(t, err)

	cancel()
	select {
	case err := <-sub.Err():
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("subscription did not end on cancel")
	}
	sub.Unsubscribe()
}
