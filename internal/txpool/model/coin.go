package model

// CoinState is the spent/unspent state of a coin as known to the coin store.
type CoinState string

var (
	// CoinUnknown marks a reference the coin store has never seen.
	CoinUnknown CoinState = "unknown"
	// CoinUnspent marks a coin that can be consumed.
	CoinUnspent CoinState = "unspent"
	// CoinSpent marks a coin already consumed on chain.
	CoinSpent CoinState = "spent"
)

// Coin is a UTXO as reported by the coin store.
type Coin struct {
	Outpoint Outpoint
	Owner    string
	Amount   uint64
	State    CoinState
}
