// Package validator implements stateless admission checks for pool transactions.
package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
	"github.com/goodnatureofminers/blockinsight7000-mempool/pkg/workerpool"
)

const defaultLookupWorkers = 8

// Config holds the limits a transaction is checked against.
type Config struct {
	MaxTxSize     uint64
	MinGasPrice   uint64
	LookupWorkers int
}

// ValidationError is a local, non-fatal rejection of a transaction.
type ValidationError struct {
	Reason model.Reason
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// ReasonOf extracts the rejection reason from err, if it is a ValidationError.
func ReasonOf(err error) (model.Reason, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason, true
	}
	return model.ReasonNone, false
}

func reject(reason model.Reason, format string, args ...any) error {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Validator checks a single transaction against the coin store and the
// configured limits. It never mutates anything.
type Validator struct {
	coins   CoinLookup
	cfg     Config
	workers int
}

// New constructs a Validator.
func New(coins CoinLookup, cfg Config) (*Validator, error) {
	if coins == nil {
		return nil, errors.New("coin lookup is required")
	}
	workers := cfg.LookupWorkers
	if workers <= 0 {
		workers = defaultLookupWorkers
	}
	return &Validator{coins: coins, cfg: cfg, workers: workers}, nil
}

// Validate returns nil when tx is acceptable, a *ValidationError when it is
// not, and any other error when the coin store could not be consulted.
func (v *Validator) Validate(ctx context.Context, tx model.Transaction) error {
	if err := checkStructure(tx); err != nil {
		return err
	}
	if tx.Weight > v.cfg.MaxTxSize {
		return reject(model.ReasonOversized, "weight %d exceeds limit %d", tx.Weight, v.cfg.MaxTxSize)
	}
	if tx.GasPrice < v.cfg.MinGasPrice {
		return reject(model.ReasonUnderpriced, "gas price %d below minimum %d", tx.GasPrice, v.cfg.MinGasPrice)
	}
	return v.checkInputs(ctx, tx)
}

func checkStructure(tx model.Transaction) error {
	if len(tx.Inputs) == 0 {
		return reject(model.ReasonMalformed, "transaction has no inputs")
	}
	if len(tx.Outputs) == 0 {
		return reject(model.ReasonMalformed, "transaction has no outputs")
	}
	if tx.Weight == 0 {
		return reject(model.ReasonMalformed, "transaction weight is zero")
	}

	seen := make(map[model.Outpoint]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if _, dup := seen[in]; dup {
			return reject(model.ReasonMalformed, "input %s referenced twice", in)
		}
		seen[in] = struct{}{}
	}
	for i, out := range tx.Outputs {
		if out.Amount == 0 {
			return reject(model.ReasonMalformed, "output %d has zero amount", i)
		}
		if out.Amount > btcutil.MaxSatoshi {
			return reject(model.ReasonMalformed, "output %d amount %d exceeds money supply", i, out.Amount)
		}
	}

	if want := tx.ComputeID(); tx.ID != want {
		return reject(model.ReasonMalformed, "id %s does not match content %s", tx.ID, want)
	}
	return nil
}

func (v *Validator) checkInputs(ctx context.Context, tx model.Transaction) error {
	coins, err := workerpool.Map(ctx, v.workers, tx.Inputs, func(ctx context.Context, in model.Outpoint) (model.Coin, error) {
		coin, err := v.coins.Lookup(ctx, in)
		if err != nil {
			return model.Coin{}, fmt.Errorf("lookup coin %s: %w", in, err)
		}
		return coin, nil
	})
	if err != nil {
		return fmt.Errorf("resolve inputs of %s: %w", tx.ID, err)
	}

	for i, coin := range coins {
		switch coin.State {
		case model.CoinUnspent:
		case model.CoinSpent:
			return reject(model.ReasonSpentInput, "input %s already spent", tx.Inputs[i])
		default:
			return reject(model.ReasonUnknownInput, "input %s unknown", tx.Inputs[i])
		}
	}
	return nil
}
