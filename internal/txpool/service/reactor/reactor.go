// Package reactor reconciles the pending pool with imported blocks.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

var (
	// ErrHeightRegression reports a block that does not extend the last
	// applied height. The pool no longer mirrors the chain.
	ErrHeightRegression = errors.New("block height regression")
	// ErrBlockStreamTerminated reports the block sequence ending while the
	// reactor is still running.
	ErrBlockStreamTerminated = errors.New("block import stream terminated")
)

// Reactor applies sealed blocks to the mempool in arrival order.
type Reactor struct {
	mempool Mempool
	metrics Metrics
	logger  *zap.Logger

	applied    atomic.Bool
	lastHeight atomic.Uint64
}

// New builds a Reactor.
func New(mp Mempool, metrics Metrics, logger *zap.Logger) (*Reactor, error) {
	if mp == nil {
		return nil, errors.New("mempool is required")
	}
	if metrics == nil {
		return nil, errors.New("reactor metrics is required")
	}
	return &Reactor{mempool: mp, metrics: metrics, logger: logger}, nil
}

// Run consumes blocks until ctx is done. Both returned sentinel errors are
// fatal for the service. A block already received is always applied in full.
func (r *Reactor) Run(ctx context.Context, blocks <-chan model.SealedBlock) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case block, ok := <-blocks:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrBlockStreamTerminated
			}
			if err := r.apply(block); err != nil {
				return err
			}
		}
	}
}

func (r *Reactor) apply(block model.SealedBlock) error {
	if last := r.lastHeight.Load(); r.applied.Load() && block.Height <= last {
		return fmt.Errorf("%w: got %d after %d", ErrHeightRegression, block.Height, last)
	}

	res := r.mempool.ApplyBlock(block)
	r.lastHeight.Store(block.Height)
	r.applied.Store(true)
	r.metrics.ObserveHeight(block.Height)

	r.logger.Info("block applied",
		zap.Uint64("height", block.Height),
		zap.String("hash", block.Hash),
		zap.Int("transactions", len(block.Transactions)),
		zap.Int("included", len(res.Included)),
		zap.Int("conflicted", len(res.Conflicted)),
	)
	return nil
}

// LastHeight returns the height of the last applied block.
func (r *Reactor) LastHeight() (uint64, bool) {
	return r.lastHeight.Load(), r.applied.Load()
}
