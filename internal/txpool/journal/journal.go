// Package journal persists pool status events on a best effort basis.
package journal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
	"github.com/goodnatureofminers/blockinsight7000-mempool/pkg/batcher"
)

// Writer drains a status event stream into a Store in batches.
type Writer struct {
	store  Store
	cfg    batcher.Config
	logger *zap.Logger
}

// NewWriter validates dependencies.
func NewWriter(store Store, cfg batcher.Config, logger *zap.Logger) (*Writer, error) {
	if store == nil {
		return nil, errors.New("status store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Writer{store: store, cfg: cfg, logger: logger.Named("journal")}, nil
}

// Run consumes events until the stream closes or ctx is done, then flushes
// whatever is still buffered.
func (w *Writer) Run(ctx context.Context, events <-chan model.StatusEvent) error {
	b, err := batcher.New(w.logger, w.store.InsertStatusEvents, w.cfg)
	if err != nil {
		return fmt.Errorf("create batcher: %w", err)
	}
	b.Start(ctx)
	defer b.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := b.Add(ctx, ev); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return fmt.Errorf("queue status event: %w", err)
			}
		}
	}
}
