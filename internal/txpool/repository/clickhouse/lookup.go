package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

// Lookup resolves a coin reference against confirmed chain state. A reference
// with no output row is reported as unknown; an output consumed by a
// confirmed input is reported as spent.
func (r *Repository) Lookup(ctx context.Context, op model.Outpoint) (coin model.Coin, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("lookup", err, start)
	}()

	coin = model.Coin{Outpoint: op, State: model.CoinUnknown}

	found, err := r.output(ctx, op, &coin)
	if err != nil {
		return model.Coin{}, err
	}
	if !found {
		return coin, nil
	}

	spent, err := r.spent(ctx, op)
	if err != nil {
		return model.Coin{}, err
	}
	if spent {
		coin.State = model.CoinSpent
	} else {
		coin.State = model.CoinUnspent
	}
	return coin, nil
}

func (r *Repository) output(ctx context.Context, op model.Outpoint, coin *model.Coin) (found bool, err error) {
	const query = `
SELECT
	anyLast(value) AS value,
	anyLast(addresses) AS addresses
FROM utxo_transaction_outputs_lookup
WHERE coin = ? AND network = ? AND txid = ? AND output_index = ?
GROUP BY
	txid,
	output_index
SETTINGS max_threads = 1`

	rows, err := r.conn.Query(ctx, query, r.coin, r.network, op.TxID.String(), op.Index)
	if err != nil {
		return false, fmt.Errorf("query output %s: %w", op, err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	if rows.Next() {
		var addresses []string
		if err = rows.Scan(&coin.Amount, &addresses); err != nil {
			return false, fmt.Errorf("scan output %s: %w", op, err)
		}
		if len(addresses) > 0 {
			coin.Owner = addresses[0]
		}
		found = true
	}

	if err = rows.Err(); err != nil {
		return false, fmt.Errorf("iterate output %s: %w", op, err)
	}
	return found, nil
}

func (r *Repository) spent(ctx context.Context, op model.Outpoint) (spent bool, err error) {
	const query = `
SELECT count() AS spenders
FROM utxo_transaction_inputs
WHERE coin = ? AND network = ? AND prev_txid = ? AND prev_vout = ?`

	rows, err := r.conn.Query(ctx, query, r.coin, r.network, op.TxID.String(), op.Index)
	if err != nil {
		return false, fmt.Errorf("query spenders of %s: %w", op, err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	var count uint64
	if rows.Next() {
		if err = rows.Scan(&count); err != nil {
			return false, fmt.Errorf("scan spenders of %s: %w", op, err)
		}
	}

	if err = rows.Err(); err != nil {
		return false, fmt.Errorf("iterate spenders of %s: %w", op, err)
	}
	return count > 0, nil
}
