package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	id     int32
	closed atomic.Bool
}

func TestConnectorSharesInFlightDial(t *testing.T) {
	var attempts atomic.Int32
	release := make(chan struct{})

	c := NewConnector("test", func(ctx context.Context) (*fakeHandle, error) {
		n := attempts.Add(1)
		<-release
		return &fakeHandle{id: n}, nil
	}, nil, time.Second)

	const callers = 50
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]*fakeHandle, callers)
	errs := make([]error, callers)

	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], errs[i] = c.Connect(context.Background())
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), attempts.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}

	again, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Same(t, results[0], again)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestConnectorRetriesAfterFailure(t *testing.T) {
	var attempts atomic.Int32
	c := NewConnector("test", func(ctx context.Context) (*fakeHandle, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New("dns lookup failed")
		}
		return &fakeHandle{id: attempts.Load()}, nil
	}, nil, time.Second)

	_, err := c.Connect(context.Background())
	require.Error(t, err)

	h, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), h.id)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestConnectorCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	c := NewConnector("test", func(ctx context.Context) (*fakeHandle, error) {
		<-release
		return &fakeHandle{id: 1}, nil
	}, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	h, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), h.id)
}

func TestConnectorClose(t *testing.T) {
	c := NewConnector("test", func(ctx context.Context) (*fakeHandle, error) {
		return &fakeHandle{id: 1}, nil
	}, func(h *fakeHandle) error {
		h.closed.Store(true)
		return nil
	}, time.Second)

	h, err := c.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.True(t, h.closed.Load())

	_, err = c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectorClosed)
	assert.NoError(t, c.Close())
}
