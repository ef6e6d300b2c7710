package model

import "time"

// Origin tells how a transaction reached the pool.
type Origin string

var (
	OriginAPI    Origin = "api"
	OriginGossip Origin = "gossip"
)

// PendingEntry is an admitted transaction held by the pool. The coins it
// consumes are Tx.Inputs.
type PendingEntry struct {
	Tx         Transaction
	AdmittedAt time.Time
	Seq        uint64
	Origin     Origin
}

// GossipEnvelope carries an inbound transaction and the provenance needed to
// route the verdict back to the network layer.
type GossipEnvelope struct {
	Tx        Transaction
	PeerID    string
	MessageID string
}

// Verdict is the acceptance signal reported for a gossiped transaction.
type Verdict string

var (
	VerdictAccept Verdict = "accept"
	VerdictReject Verdict = "reject"
	VerdictIgnore Verdict = "ignore"
)

// Filter narrows a pool query. Zero values match everything.
type Filter struct {
	IDs         []TxID
	Owner       string
	MinGasPrice uint64
	Limit       int
}
