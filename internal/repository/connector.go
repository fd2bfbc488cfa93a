package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"blog-admin/internal/util"
)

var ErrConnectorClosed = errors.New("connector closed")

// DialFunc opens a new store handle.
type DialFunc[T any] func(ctx context.Context) (T, error)

// Connector holds the process-wide store handle. The handle is created on
// first use; concurrent first callers share one in-flight dial, and a failed
// dial is not remembered so the next call starts a fresh attempt.
type Connector[T any] struct {
	name    string
	dial    DialFunc[T]
	closeFn func(T) error
	timeout time.Duration

	group singleflight.Group

	mu     sync.RWMutex
	conn   T
	ready  bool
	closed bool
}

// NewConnector builds a Connector. closeFn may be nil. timeout bounds each
// dial independently of the callers' contexts.
func NewConnector[T any](name string, dial DialFunc[T], closeFn func(T) error, timeout time.Duration) *Connector[T] {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Connector[T]{name: name, dial: dial, closeFn: closeFn, timeout: timeout}
}

func (c *Connector[T]) cached() (T, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	if c.closed {
		return zero, false, ErrConnectorClosed
	}
	return c.conn, c.ready, nil
}

// Connect returns the cached handle, dialing it if needed. A caller whose
// context ends while a shared dial is in flight gets ctx.Err(); the dial
// itself keeps going for the other callers.
func (c *Connector[T]) Connect(ctx context.Context) (T, error) {
	var zero T
	if conn, ok, err := c.cached(); err != nil || ok {
		return conn, err
	}

	ch := c.group.DoChan(c.name, func() (interface{}, error) {
		if conn, ok, err := c.cached(); err != nil || ok {
			return conn, err
		}

		dialCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		start := time.Now()
		conn, err := c.dial(dialCtx)
		if err != nil {
			util.Error("Store connection attempt failed",
				util.String("store", c.name),
				util.Duration("duration", time.Since(start)),
				util.ErrorField(err))
			return zero, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			if c.closeFn != nil {
				_ = c.closeFn(conn)
			}
			return zero, ErrConnectorClosed
		}
		c.conn = conn
		c.ready = true

		util.Info("Store connection established",
			util.String("store", c.name),
			util.Duration("duration", time.Since(start)))
		return conn, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close releases the cached handle. Later Connect calls fail.
func (c *Connector[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if !c.ready || c.closeFn == nil {
		return nil
	}
	var zero T
	conn := c.conn
	c.conn = zero
	c.ready = false
	return c.closeFn(conn)
}
