// Package pool holds the in-memory set of admitted pending transactions and
// applies the conflict and capacity policy.
//
// Pool is not safe for concurrent use; the mempool serializes every call.
package pool

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/btree"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

const btreeDegree = 32

// Outcome is the result of an insertion attempt.
type Outcome string

var (
	Admitted          Outcome = "admitted"
	RejectedDuplicate Outcome = "rejected_duplicate"
	RejectedConflict  Outcome = "rejected_conflict"
	RejectedCapacity  Outcome = "rejected_capacity"
)

// Reason maps a rejection outcome to its taxonomy value.
func (o Outcome) Reason() model.Reason {
	switch o {
	case RejectedDuplicate:
		return model.ReasonDuplicate
	case RejectedConflict:
		return model.ReasonConflict
	case RejectedCapacity:
		return model.ReasonCapacity
	default:
		return model.ReasonNone
	}
}

// Eviction is an entry squeezed out by an insertion.
type Eviction struct {
	Entry  model.PendingEntry
	Reason model.Reason
}

// InsertResult describes what an insertion did to the pool.
type InsertResult struct {
	Outcome Outcome
	Entry   model.PendingEntry
	Evicted []Eviction
	// Winners lists the existing entries the incoming transaction lost against.
	Winners []model.TxID
	// Squeezed is set when the admitted entry was itself a capacity victim.
	Squeezed bool
}

// Limits bounds the pool. Zero disables a bound.
type Limits struct {
	MaxCount  int
	MaxWeight uint64
}

// Pool is the authoritative set of pending entries with a coin-conflict index.
type Pool struct {
	limits     Limits
	entries    map[model.TxID]*model.PendingEntry
	spenders   map[model.Outpoint]model.TxID
	byPriority *btree.BTreeG[*model.PendingEntry]
	weight     uint64
	seq        uint64
}

// New constructs an empty Pool.
func New(limits Limits) *Pool {
	return &Pool{
		limits:     limits,
		entries:    make(map[model.TxID]*model.PendingEntry),
		spenders:   make(map[model.Outpoint]model.TxID),
		byPriority: btree.NewG[*model.PendingEntry](btreeDegree, less),
	}
}

// less orders entries from first to last eviction candidate: lower gas price
// first, then older admission first.
func less(a, b *model.PendingEntry) bool {
	if a.Tx.GasPrice != b.Tx.GasPrice {
		return a.Tx.GasPrice < b.Tx.GasPrice
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return bytes.Compare(a.Tx.ID[:], b.Tx.ID[:]) < 0
}

// Insert admits tx unless it duplicates an entry, loses a coin conflict, or
// outweighs the whole pool. After admission the lowest-priority entries are
// evicted until the pool is within its limits; the admitted entry is itself
// eligible and Squeezed reports when it was evicted. Validation is the
// caller's job.
func (p *Pool) Insert(tx model.Transaction, origin model.Origin, now time.Time) InsertResult {
	if _, ok := p.entries[tx.ID]; ok {
		return InsertResult{Outcome: RejectedDuplicate}
	}

	conflicts := p.conflicting(tx)
	var winners []model.TxID
	for _, c := range conflicts {
		if tx.GasPrice <= c.Tx.GasPrice {
			winners = append(winners, c.Tx.ID)
		}
	}
	if len(winners) > 0 {
		return InsertResult{Outcome: RejectedConflict, Winners: winners}
	}

	if p.limits.MaxWeight > 0 && tx.Weight > p.limits.MaxWeight {
		return InsertResult{Outcome: RejectedCapacity}
	}

	p.seq++
	candidate := &model.PendingEntry{Tx: tx, AdmittedAt: now, Seq: p.seq, Origin: origin}
	result := InsertResult{Outcome: Admitted, Entry: *candidate}
	for _, c := range conflicts {
		p.remove(c)
		result.Evicted = append(result.Evicted, Eviction{Entry: *c, Reason: model.ReasonConflict})
	}
	p.add(candidate)

	for p.exceeds(len(p.entries), p.weight) {
		victim, ok := p.byPriority.Min()
		if !ok {
			break
		}
		p.remove(victim)
		result.Evicted = append(result.Evicted, Eviction{Entry: *victim, Reason: model.ReasonCapacity})
		if victim == candidate {
			result.Squeezed = true
		}
	}

	return result
}

// conflicting returns the distinct entries consuming any input of tx, in
// input order.
func (p *Pool) conflicting(tx model.Transaction) []*model.PendingEntry {
	var conflicts []*model.PendingEntry
	set := make(map[model.TxID]struct{})
	for _, in := range tx.Inputs {
		id, ok := p.spenders[in]
		if !ok {
			continue
		}
		if _, seen := set[id]; seen {
			continue
		}
		entry, ok := p.entries[id]
		if !ok {
			panic(fmt.Sprintf("pool: coin %s indexed to missing entry %s", in, id))
		}
		set[id] = struct{}{}
		conflicts = append(conflicts, entry)
	}
	return conflicts
}

func (p *Pool) exceeds(count int, weight uint64) bool {
	if p.limits.MaxCount > 0 && count > p.limits.MaxCount {
		return true
	}
	return p.limits.MaxWeight > 0 && weight > p.limits.MaxWeight
}

func (p *Pool) add(e *model.PendingEntry) {
	p.entries[e.Tx.ID] = e
	for _, in := range e.Tx.Inputs {
		if owner, taken := p.spenders[in]; taken {
			panic(fmt.Sprintf("pool: coin %s already consumed by %s", in, owner))
		}
		p.spenders[in] = e.Tx.ID
	}
	p.byPriority.ReplaceOrInsert(e)
	p.weight += e.Tx.Weight
}

func (p *Pool) remove(e *model.PendingEntry) {
	delete(p.entries, e.Tx.ID)
	for _, in := range e.Tx.Inputs {
		if owner := p.spenders[in]; owner != e.Tx.ID {
			panic(fmt.Sprintf("pool: coin %s indexed to %s, expected %s", in, owner, e.Tx.ID))
		}
		delete(p.spenders, in)
	}
	if _, found := p.byPriority.Delete(e); !found {
		panic(fmt.Sprintf("pool: entry %s missing from priority index", e.Tx.ID))
	}
	p.weight -= e.Tx.Weight
}

// Remove drops the given entries unconditionally and returns those that were
// present. It emits nothing; the caller reports the status.
func (p *Pool) Remove(ids []model.TxID) []model.PendingEntry {
	removed := make([]model.PendingEntry, 0, len(ids))
	for _, id := range ids {
		entry, ok := p.entries[id]
		if !ok {
			continue
		}
		p.remove(entry)
		removed = append(removed, *entry)
	}
	return removed
}

// Contains reports whether id is pending.
func (p *Pool) Contains(id model.TxID) bool {
	_, ok := p.entries[id]
	return ok
}

// Get returns the pending entry for id.
func (p *Pool) Get(id model.TxID) (model.PendingEntry, bool) {
	entry, ok := p.entries[id]
	if !ok {
		return model.PendingEntry{}, false
	}
	return *entry, true
}

// Spender returns the pending transaction consuming op.
func (p *Pool) Spender(op model.Outpoint) (model.TxID, bool) {
	id, ok := p.spenders[op]
	return id, ok
}

// Len returns the number of pending entries.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Weight returns the total weight of pending entries.
func (p *Pool) Weight() uint64 {
	return p.weight
}

// Entries returns a snapshot of all pending entries by descending priority.
func (p *Pool) Entries() []model.PendingEntry {
	entries := make([]model.PendingEntry, 0, len(p.entries))
	p.byPriority.Descend(func(e *model.PendingEntry) bool {
		entries = append(entries, *e)
		return true
	})
	return entries
}

// Select returns transactions by descending gas price whose summed weight
// fits maxWeight. Entries that do not fit are skipped.
func (p *Pool) Select(maxWeight uint64) []model.Transaction {
	var (
		selected []model.Transaction
		used     uint64
	)
	p.byPriority.Descend(func(e *model.PendingEntry) bool {
		if used+e.Tx.Weight <= maxWeight {
			selected = append(selected, e.Tx)
			used += e.Tx.Weight
		}
		return used < maxWeight
	})
	return selected
}

// Query returns a snapshot of transactions matching filter, by descending gas
// price unless explicit IDs are requested.
func (p *Pool) Query(filter model.Filter) []model.Transaction {
	match := func(e *model.PendingEntry) bool {
		if e.Tx.GasPrice < filter.MinGasPrice {
			return false
		}
		return filter.Owner == "" || e.Tx.PaysTo(filter.Owner)
	}
	full := func(n int) bool {
		return filter.Limit > 0 && n >= filter.Limit
	}

	var result []model.Transaction
	if len(filter.IDs) > 0 {
		for _, id := range filter.IDs {
			if full(len(result)) {
				break
			}
			if e, ok := p.entries[id]; ok && match(e) {
				result = append(result, e.Tx)
			}
		}
		return result
	}

	p.byPriority.Descend(func(e *model.PendingEntry) bool {
		if match(e) {
			result = append(result, e.Tx)
		}
		return !full(len(result))
	})
	return result
}

// CheckIndex verifies that the coin index, the priority index and the entry
// set agree.
func (p *Pool) CheckIndex() error {
	if p.byPriority.Len() != len(p.entries) {
		return fmt.Errorf("priority index holds %d entries, pool holds %d", p.byPriority.Len(), len(p.entries))
	}

	var weight uint64
	consumed := 0
	for id, e := range p.entries {
		if e.Tx.ID != id {
			return fmt.Errorf("entry %s stored under %s", e.Tx.ID, id)
		}
		weight += e.Tx.Weight
		for _, in := range e.Tx.Inputs {
			if owner, ok := p.spenders[in]; !ok || owner != id {
				return fmt.Errorf("coin %s of %s indexed to %s", in, id, owner)
			}
			consumed++
		}
	}
	if consumed != len(p.spenders) {
		return fmt.Errorf("coin index holds %d coins, entries consume %d", len(p.spenders), consumed)
	}
	if weight != p.weight {
		return fmt.Errorf("tracked weight %d, entries weigh %d", p.weight, weight)
	}
	return nil
}
