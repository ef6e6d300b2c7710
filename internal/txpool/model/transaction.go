// Package model defines domain models for the transaction pool.
package model

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// TxID is the Bitcoin transaction id of a transaction's wire form.
type TxID = chainhash.Hash

// wireTxVersion is the version of the canonical wire form.
const wireTxVersion = 2

// addressNets are tried in order when an output owner is decoded as an address.
var addressNets = []*chaincfg.Params{
	&chaincfg.MainNetParams,
	&chaincfg.TestNet3Params,
	&chaincfg.SigNetParams,
	&chaincfg.RegressionNetParams,
}

// Outpoint references a coin: the producing transaction and the output index.
type Outpoint struct {
	TxID  TxID
	Index uint32
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Index)
}

// Output is a coin produced by a transaction. Owner is an address; anything
// that does not decode as one is used verbatim as the locking script.
type Output struct {
	Owner  string
	Amount uint64
}

// Transaction is an immutable pool transaction. GasPrice is its priority metric
// and Weight its size cost; both are declared by the sender and are not part
// of the id.
type Transaction struct {
	ID       TxID
	Inputs   []Outpoint
	Outputs  []Output
	GasPrice uint64
	Weight   uint64
}

// NewTransaction builds a transaction and derives its ID from the content.
func NewTransaction(inputs []Outpoint, outputs []Output, gasPrice, weight uint64) Transaction {
	tx := Transaction{
		Inputs:   inputs,
		Outputs:  outputs,
		GasPrice: gasPrice,
		Weight:   weight,
	}
	tx.ID = tx.ComputeID()
	return tx
}

// ComputeID returns the txid of the transaction's wire form, so a pool
// transaction and the same spend mined in a block share one id.
func (t Transaction) ComputeID() TxID {
	return t.MsgTx().TxHash()
}

// MsgTx returns the canonical wire form: version 2, final sequences, no lock
// time and no unlocking scripts.
func (t Transaction) MsgTx() *wire.MsgTx {
	msg := wire.NewMsgTx(wireTxVersion)
	for _, in := range t.Inputs {
		prev := in.TxID
		msg.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prev, in.Index), nil, nil))
	}
	for _, out := range t.Outputs {
		msg.AddTxOut(wire.NewTxOut(int64(out.Amount), OwnerScript(out.Owner)))
	}
	return msg
}

// OwnerScript returns the locking script paying to owner.
func OwnerScript(owner string) []byte {
	for _, params := range addressNets {
		addr, err := btcutil.DecodeAddress(owner, params)
		if err != nil {
			continue
		}
		script, err := txscript.PayToAddrScript(addr)
		if err != nil {
			break
		}
		return script
	}
	return []byte(owner)
}

// Spends reports whether the transaction consumes the given coin.
func (t Transaction) Spends(op Outpoint) bool {
	for _, in := range t.Inputs {
		if in == op {
			return true
		}
	}
	return false
}

// PaysTo reports whether any output of the transaction belongs to owner.
func (t Transaction) PaysTo(owner string) bool {
	for _, out := range t.Outputs {
		if out.Owner == owner {
			return true
		}
	}
	return false
}
