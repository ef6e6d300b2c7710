package model

// BlockTransaction is a transaction included in a sealed block. Only the
// identity and the consumed coins matter to the pool.
type BlockTransaction struct {
	ID     TxID
	Inputs []Outpoint
}

// SealedBlock is a committed block as delivered by the block importer.
type SealedBlock struct {
	Height       uint64
	Hash         string
	Transactions []BlockTransaction
}

// TxIDs returns the included transaction IDs in block order.
func (b SealedBlock) TxIDs() []TxID {
	ids := make([]TxID, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		ids = append(ids, tx.ID)
	}
	return ids
}
