package beacon

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quoteline/beacon/pkg/constants"
	"github.com/quoteline/beacon/pkg/errors"
	"github.com/quoteline/beacon/pkg/logging"
)

// AutoRefreshOn begins background refreshes if configured. Each pass
// fetches the index and refreshes every listed catalog; failures are
// logged and the ticker keeps running.
func (c *client) AutoRefreshOn() error {
	if c.options.autoRefreshInterval <= 0 {
		return &errors.ValidationError{
			Field:   "autoRefreshInterval",
			Value:   c.options.autoRefreshInterval,
			Message: "refresh interval must be positive",
		}
	}

	// Stop any existing refresher to prevent resource leaks.
	if err := c.AutoRefreshOff(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopCh = make(chan struct{})
	c.refreshTicker = time.NewTicker(c.options.autoRefreshInterval)

	ctx, cancel := context.WithCancel(context.Background())
	c.refreshCancel = cancel
	c.autoRefreshing = true

	go c.refreshLoop(ctx, c.refreshTicker, c.stopCh)

	return nil
}

// AutoRefreshOff stops background refreshes.
func (c *client) AutoRefreshOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshTicker != nil {
		c.refreshTicker.Stop()
		c.refreshTicker = nil
	}
	if c.refreshCancel != nil {
		c.refreshCancel()
		c.refreshCancel = nil
	}
	if c.stopCh != nil {
		select {
		case <-c.stopCh:
			// Already closed
		default:
			close(c.stopCh)
		}
	}
	c.autoRefreshing = false
	return nil
}

// refreshLoop runs until the ticker is stopped or the context canceled.
func (c *client) refreshLoop(ctx context.Context, ticker *time.Ticker, stopCh chan struct{}) {
	for {
		select {
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, constants.RefreshContextTimeout)
			err := c.refreshAll(refreshCtx)
			cancel()

			if err != nil {
				if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
					return
				}
				logging.Error().Err(err).Msg("Auto-refresh failed")
			}
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		}
	}
}

// refreshAll refreshes every catalog listed in the remote index,
// bypassing the cache freshness check.
func (c *client) refreshAll(ctx context.Context) error {
	idx, err := c.Index(ctx)
	if err != nil {
		return err
	}

	ids := idx.IDs()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.options.concurrency)

	var failed atomic.Int64
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := c.Refresh(gctx, id); err != nil {
				failed.Add(1)
				logging.Warn().
					Str("catalog_id", string(id)).
					Err(err).
					Msg("Catalog refresh failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	logging.Info().
		Int("catalogs", len(ids)).
		Int64("failed", failed.Load()).
		Msg("Auto-refresh pass complete")
	return ctx.Err()
}
