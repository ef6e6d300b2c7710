// Package mempool serializes every mutation of the pending pool and turns
// pool outcomes into status events.
package mempool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/pool"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/validator"
)

// Result is the outcome of an admission attempt.
type Result struct {
	Admitted bool
	// Squeezed is set when the admitted transaction was evicted for capacity
	// in the same step and is no longer pending.
	Squeezed bool
	Reason   model.Reason
	Entry    model.PendingEntry
	Evicted  []pool.Eviction
}

// BlockResult lists the entries a block removed from the pool.
type BlockResult struct {
	Included   []model.TxID
	Conflicted []model.TxID
}

// Mempool owns the pending pool. A single mutex guards every read and
// mutation; coin lookups run outside of it.
type Mempool struct {
	mu        sync.Mutex
	pool      *pool.Pool
	validator Validator
	notifier  Notifier
	metrics   Metrics
	now       func() time.Time
	logger    *zap.Logger
}

// New builds a Mempool around an empty pool.
func New(p *pool.Pool, v Validator, notifier Notifier, metrics Metrics, logger *zap.Logger) (*Mempool, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	if v == nil {
		return nil, errors.New("validator is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if metrics == nil {
		return nil, errors.New("mempool metrics is required")
	}
	return &Mempool{
		pool:      p,
		validator: v,
		notifier:  notifier,
		metrics:   metrics,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// Admit validates tx and inserts it. Rejections are reported in the Result;
// an error means a collaborator failed and nothing was decided.
func (m *Mempool) Admit(ctx context.Context, tx model.Transaction, origin model.Origin) (Result, error) {
	started := time.Now()

	if m.Contains(tx.ID) {
		m.metrics.ObserveAdmission(origin, model.ReasonDuplicate, started)
		return Result{Reason: model.ReasonDuplicate}, nil
	}

	if err := m.validator.Validate(ctx, tx); err != nil {
		reason, ok := validator.ReasonOf(err)
		if !ok {
			return Result{}, fmt.Errorf("validate transaction %s: %w", tx.ID, err)
		}
		m.logger.Debug("transaction rejected",
			zap.Stringer("txid", tx.ID),
			zap.String("origin", string(origin)),
			zap.Error(err),
		)
		m.reject(tx.ID, reason)
		m.metrics.ObserveAdmission(origin, reason, started)
		return Result{Reason: reason}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	res := m.pool.Insert(tx, origin, now)
	if res.Outcome != pool.Admitted {
		reason := res.Outcome.Reason()
		if res.Outcome != pool.RejectedDuplicate {
			m.notifier.Publish(model.Rejected(tx.ID, reason, now))
		}
		m.logger.Debug("transaction not admitted",
			zap.Stringer("txid", tx.ID),
			zap.String("outcome", string(res.Outcome)),
			zap.Int("winners", len(res.Winners)),
		)
		m.metrics.ObserveAdmission(origin, reason, started)
		return Result{Reason: reason}, nil
	}

	// Conflict losers leave before the admission, capacity victims after it.
	for _, ev := range res.Evicted {
		if ev.Reason == model.ReasonConflict {
			m.squeeze(ev, tx.ID, now)
		}
	}
	m.notifier.Publish(model.Submitted(tx.ID, now))
	for _, ev := range res.Evicted {
		if ev.Reason != model.ReasonConflict {
			m.squeeze(ev, tx.ID, now)
		}
	}
	m.metrics.ObserveAdmission(origin, model.ReasonNone, started)
	m.metrics.ObservePoolSize(m.pool.Len(), m.pool.Weight())

	return Result{Admitted: true, Squeezed: res.Squeezed, Entry: res.Entry, Evicted: res.Evicted}, nil
}

func (m *Mempool) squeeze(ev pool.Eviction, by model.TxID, now time.Time) {
	m.notifier.Publish(model.SqueezedOut(ev.Entry.Tx.ID, ev.Reason, now))
	m.metrics.ObserveEviction(ev.Reason)
	m.logger.Debug("transaction squeezed out",
		zap.Stringer("txid", ev.Entry.Tx.ID),
		zap.String("reason", string(ev.Reason)),
		zap.Stringer("by", by),
	)
}

func (m *Mempool) reject(id model.TxID, reason model.Reason) {
	m.notifier.Publish(model.Rejected(id, reason, m.now()))
}

// ApplyBlock reconciles the pool with a sealed block in one step: included
// entries leave with Included, then entries spending a coin the block
// consumed leave with SqueezedOut(block_conflict).
func (m *Mempool) ApplyBlock(block model.SealedBlock) BlockResult {
	started := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var result BlockResult
	for _, entry := range m.pool.Remove(block.TxIDs()) {
		m.notifier.Publish(model.Included(entry.Tx.ID, block.Height, now))
		result.Included = append(result.Included, entry.Tx.ID)
	}

	for _, btx := range block.Transactions {
		for _, in := range btx.Inputs {
			spender, ok := m.pool.Spender(in)
			if !ok {
				continue
			}
			for _, entry := range m.pool.Remove([]model.TxID{spender}) {
				m.notifier.Publish(model.SqueezedOut(entry.Tx.ID, model.ReasonBlockConflict, now))
				m.metrics.ObserveEviction(model.ReasonBlockConflict)
				result.Conflicted = append(result.Conflicted, entry.Tx.ID)
			}
		}
	}

	m.metrics.ObserveBlock(len(result.Included), len(result.Conflicted), started)
	m.metrics.ObservePoolSize(m.pool.Len(), m.pool.Weight())
	return result
}

// Contains reports whether id is pending.
func (m *Mempool) Contains(id model.TxID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.Contains(id)
}

// Get returns the pending entry for id.
func (m *Mempool) Get(id model.TxID) (model.PendingEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.Get(id)
}

// Select returns pending transactions by descending gas price within maxWeight.
func (m *Mempool) Select(maxWeight uint64) []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.Select(maxWeight)
}

// Query returns a snapshot of pending transactions matching filter.
func (m *Mempool) Query(filter model.Filter) []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.Query(filter)
}

// Stats returns the pending count and total weight.
func (m *Mempool) Stats() (int, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.Len(), m.pool.Weight()
}

// CheckIndex verifies the pool indexes agree.
func (m *Mempool) CheckIndex() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.CheckIndex()
}
