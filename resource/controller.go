// Package resource bounds the transfer resources used when moving
// snapshots between the index and a blob store.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds transfer limits.
type Config struct {
	// MaxConcurrentTransfers caps in-flight blob transfers. Defaults to 1.
	MaxConcurrentTransfers int64

	// IOLimitBytesPerSec throttles transfer throughput. 0 means unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces transfer limits. A nil Controller enforces nothing.
type Controller struct {
	transferSem *semaphore.Weighted
	ioLimiter   *rate.Limiter
}

// NewController creates a controller for the given limits.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentTransfers <= 0 {
		cfg.MaxConcurrentTransfers = 1
	}
	c := &Controller{
		transferSem: semaphore.NewWeighted(cfg.MaxConcurrentTransfers),
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireTransfer reserves a transfer slot, blocking until one frees up or
// ctx is canceled.
func (c *Controller) AcquireTransfer(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.transferSem.Acquire(ctx, 1)
}

// ReleaseTransfer releases a transfer slot.
func (c *Controller) ReleaseTransfer() {
	if c == nil {
		return
	}
	c.transferSem.Release(1)
}

// AcquireIO waits until the throughput limit allows bytes more bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	// WaitN cannot exceed the limiter burst; chunk large transfers.
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := bytes
		if n > burst {
			n = burst
		}
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
