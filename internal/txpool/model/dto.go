package model

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OutpointDTO is the wire form of an Outpoint.
type OutpointDTO struct {
	TxID  string `json:"txid"`
	Index uint32 `json:"index"`
}

// OutputDTO is the wire form of an Output.
type OutputDTO struct {
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
}

// TransactionDTO is the wire form of a Transaction used by the gossip and API transports.
type TransactionDTO struct {
	ID       string        `json:"id"`
	Inputs   []OutpointDTO `json:"inputs"`
	Outputs  []OutputDTO   `json:"outputs"`
	GasPrice uint64        `json:"gas_price"`
	Weight   uint64        `json:"weight"`
}

// StatusEventDTO is the wire form of a StatusEvent.
type StatusEventDTO struct {
	TxID   string    `json:"txid"`
	Kind   string    `json:"kind"`
	Height uint64    `json:"height,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Time   time.Time `json:"time"`
}

// ToDTO converts a transaction to its wire form.
func (t Transaction) ToDTO() TransactionDTO {
	dto := TransactionDTO{
		ID:       t.ID.String(),
		Inputs:   make([]OutpointDTO, 0, len(t.Inputs)),
		Outputs:  make([]OutputDTO, 0, len(t.Outputs)),
		GasPrice: t.GasPrice,
		Weight:   t.Weight,
	}
	for _, in := range t.Inputs {
		dto.Inputs = append(dto.Inputs, OutpointDTO{TxID: in.TxID.String(), Index: in.Index})
	}
	for _, out := range t.Outputs {
		dto.Outputs = append(dto.Outputs, OutputDTO(out))
	}
	return dto
}

// Transaction converts the wire form back to a Transaction. An empty ID is
// derived from the content; a present ID is kept as sent so validation can
// detect a mismatch.
func (d TransactionDTO) Transaction() (Transaction, error) {
	tx := Transaction{
		Inputs:   make([]Outpoint, 0, len(d.Inputs)),
		Outputs:  make([]Output, 0, len(d.Outputs)),
		GasPrice: d.GasPrice,
		Weight:   d.Weight,
	}
	for i, in := range d.Inputs {
		hash, err := chainhash.NewHashFromStr(in.TxID)
		if err != nil {
			return Transaction{}, fmt.Errorf("parse input %d txid: %w", i, err)
		}
		tx.Inputs = append(tx.Inputs, Outpoint{TxID: *hash, Index: in.Index})
	}
	for _, out := range d.Outputs {
		tx.Outputs = append(tx.Outputs, Output(out))
	}

	if d.ID == "" {
		tx.ID = tx.ComputeID()
		return tx, nil
	}
	id, err := chainhash.NewHashFromStr(d.ID)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse txid: %w", err)
	}
	tx.ID = *id
	return tx, nil
}

// ToDTO converts a status event to its wire form.
func (e StatusEvent) ToDTO() StatusEventDTO {
	return StatusEventDTO{
		TxID:   e.TxID.String(),
		Kind:   string(e.Kind),
		Height: e.Height,
		Reason: string(e.Reason),
		Time:   e.Time,
	}
}
