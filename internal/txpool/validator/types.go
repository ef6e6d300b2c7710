package validator

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// CoinLookup resolves coin references against the external coin store.
	CoinLookup interface {
		Lookup(ctx context.Context, op model.Outpoint) (model.Coin, error)
	}
)
