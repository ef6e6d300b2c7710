package model

import "time"

// EventKind is the lifecycle step a status event reports.
type EventKind string

var (
	// EventSubmitted is emitted when an entry is admitted to the pool.
	EventSubmitted EventKind = "submitted"
	// EventIncluded is emitted when an entry is included in an imported block.
	EventIncluded EventKind = "included"
	// EventSqueezedOut is emitted when an entry leaves the pool without inclusion.
	EventSqueezedOut EventKind = "squeezed_out"
	// EventRejected is emitted when a transaction is refused admission.
	EventRejected EventKind = "rejected"
)

// Reason classifies rejections and evictions.
type Reason string

var (
	ReasonNone          Reason = ""
	ReasonMalformed     Reason = "malformed"
	ReasonOversized     Reason = "oversized"
	ReasonUnderpriced   Reason = "underpriced"
	ReasonUnknownInput  Reason = "unknown_input"
	ReasonSpentInput    Reason = "spent_input"
	ReasonDuplicate     Reason = "duplicate"
	ReasonConflict      Reason = "conflict"
	ReasonCapacity      Reason = "capacity"
	ReasonBlockConflict Reason = "block_conflict"
)

// StatusEvent reports a lifecycle change of a pool entry.
type StatusEvent struct {
	TxID   TxID
	Kind   EventKind
	Height uint64
	Reason Reason
	Time   time.Time
}

// Submitted builds a Submitted event.
func Submitted(id TxID, at time.Time) StatusEvent {
	return StatusEvent{TxID: id, Kind: EventSubmitted, Time: at}
}

// Included builds an Included(height) event.
func Included(id TxID, height uint64, at time.Time) StatusEvent {
	return StatusEvent{TxID: id, Kind: EventIncluded, Height: height, Time: at}
}

// SqueezedOut builds a SqueezedOut(reason) event.
func SqueezedOut(id TxID, reason Reason, at time.Time) StatusEvent {
	return StatusEvent{TxID: id, Kind: EventSqueezedOut, Reason: reason, Time: at}
}

// Rejected builds a Rejected(reason) event.
func Rejected(id TxID, reason Reason, at time.Time) StatusEvent {
	return StatusEvent{TxID: id, Kind: EventRejected, Reason: reason, Time: at}
}
