package bitcoin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/clock"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

// ImporterConfig tunes block polling.
type ImporterConfig struct {
	PollInterval time.Duration
	// StartHeight is the first height delivered; zero starts after the
	// current tip.
	StartHeight uint64
}

// Importer delivers sealed blocks in strictly increasing height order. It
// polls the node and wakes up early on a block signal when one is wired.
type Importer struct {
	source      BlockSource
	cfg         ImporterConfig
	blockSignal <-chan struct{}
	sleep       func(context.Context, time.Duration) error
	logger      *zap.Logger
}

// NewImporter builds an Importer. blockSignal may be nil.
func NewImporter(source BlockSource, cfg ImporterConfig, blockSignal <-chan struct{}, logger *zap.Logger) (*Importer, error) {
	if source == nil {
		return nil, errors.New("block source is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}
	return &Importer{
		source:      source,
		cfg:         cfg,
		blockSignal: blockSignal,
		sleep:       clock.SleepWithContext,
		logger:      logger,
	}, nil
}

// BlockEvents resolves the starting height and streams blocks until ctx is
// done. The channel is closed only after ctx ends.
func (i *Importer) BlockEvents(ctx context.Context) (<-chan model.SealedBlock, error) {
	next := i.cfg.StartHeight
	if next == 0 {
		tip, err := i.source.LatestHeight(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve start height: %w", err)
		}
		next = tip + 1
	}

	out := make(chan model.SealedBlock)
	go func() {
		defer close(out)
		i.run(ctx, next, out)
	}()
	return out, nil
}

func (i *Importer) run(ctx context.Context, next uint64, out chan<- model.SealedBlock) {
	i.logger.Info("block import started", zap.Uint64("from_height", next))
	for {
		var err error
		next, err = i.deliver(ctx, next, out)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			i.logger.Warn("block import iteration failed, backing off",
				zap.Uint64("height", next), zap.Duration("sleep", i.cfg.PollInterval), zap.Error(err))
			if i.sleep(ctx, i.cfg.PollInterval) != nil {
				return
			}
			continue
		}
		if i.wait(ctx) != nil {
			return
		}
	}
}

// deliver sends every block from next up to the current tip and returns the
// next height to fetch.
func (i *Importer) deliver(ctx context.Context, next uint64, out chan<- model.SealedBlock) (uint64, error) {
	tip, err := i.source.LatestHeight(ctx)
	if err != nil {
		return next, fmt.Errorf("latest height: %w", err)
	}
	for ; next <= tip; next++ {
		block, err := i.source.FetchBlock(ctx, next)
		if err != nil {
			return next, err
		}
		select {
		case <-ctx.Done():
			return next, ctx.Err()
		case out <- block:
		}
	}
	return next, nil
}

func (i *Importer) wait(ctx context.Context) error {
	if i.blockSignal == nil {
		return i.sleep(ctx, i.cfg.PollInterval)
	}
	return clock.WaitOrSignal(ctx, i.cfg.PollInterval, i.blockSignal)
}
