// Package bitcoin imports sealed blocks from a Bitcoin node.
package bitcoin

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

// SealedBlockFromWire maps a wire block at the given height to a SealedBlock.
// Coinbase inputs consume no coin and are skipped.
func SealedBlockFromWire(height uint64, msg *wire.MsgBlock) model.SealedBlock {
	block := btcutil.NewBlock(msg)

	sealed := model.SealedBlock{
		Height:       height,
		Hash:         block.Hash().String(),
		Transactions: make([]model.BlockTransaction, 0, len(msg.Transactions)),
	}
	for _, tx := range block.Transactions() {
		btx := model.BlockTransaction{ID: *tx.Hash()}
		if !isCoinbase(tx.MsgTx()) {
			btx.Inputs = make([]model.Outpoint, 0, len(tx.MsgTx().TxIn))
			for _, in := range tx.MsgTx().TxIn {
				btx.Inputs = append(btx.Inputs, model.Outpoint{
					TxID:  in.PreviousOutPoint.Hash,
					Index: in.PreviousOutPoint.Index,
				})
			}
		}
		sealed.Transactions = append(sealed.Transactions, btx)
	}
	return sealed
}

func isCoinbase(tx *wire.MsgTx) bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	prev := tx.TxIn[0].PreviousOutPoint
	return prev.Index == wire.MaxPrevOutIndex && prev.Hash == (model.TxID{})
}
