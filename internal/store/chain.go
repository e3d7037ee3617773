package store

import (
	"context"
	"errors"

	"github.com/wonny/movers/internal/movers"
	"github.com/wonny/movers/pkg/logger"
)

// Chain fans a snapshot out to several stores. The first store is primary:
// its failures fail the run and it is read first by LoadLast. Mirror failures
// are logged only.
type Chain struct {
	primary movers.Store
	mirrors []movers.Store
	logger  *logger.Logger
}

// NewChain creates a chain over primary and optional mirrors
func NewChain(log *logger.Logger, primary movers.Store, mirrors ...movers.Store) *Chain {
	return &Chain{primary: primary, mirrors: mirrors, logger: log}
}

// Save writes to the primary, then to every mirror
func (c *Chain) Save(ctx context.Context, snapshot *movers.MarketSnapshot) error {
	if err := c.primary.Save(ctx, snapshot); err != nil {
		return err
	}
	for _, m := range c.mirrors {
		if err := m.Save(ctx, snapshot); err != nil {
			c.logger.WithError(err).Warn("Mirror store save failed")
		}
	}
	return nil
}

// LoadLast reads the primary and falls back to mirrors in order
func (c *Chain) LoadLast(ctx context.Context) (*movers.MarketSnapshot, error) {
	var errs []error
	for _, s := range append([]movers.Store{c.primary}, c.mirrors...) {
		snapshot, err := s.LoadLast(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if snapshot != nil {
			return snapshot, nil
		}
	}
	return nil, errors.Join(errs...)
}
