package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

// InsertStatusEvents appends status events to the journal table.
func (r *Repository) InsertStatusEvents(ctx context.Context, events []model.StatusEvent) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("insert_status_events", err, start)
	}()

	if len(events) == 0 {
		return nil
	}

	const query = `
INSERT INTO txpool_status_events (
	coin,
	network,
	txid,
	kind,
	height,
	reason,
	event_time
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare status events batch: %w", err)
	}

	for _, ev := range events {
		if err = batch.Append(
			r.coin,
			r.network,
			ev.TxID.String(),
			string(ev.Kind),
			ev.Height,
			string(ev.Reason),
			ev.Time.UTC(),
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append status event: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert status events: %w", err)
	}
	return nil
}
