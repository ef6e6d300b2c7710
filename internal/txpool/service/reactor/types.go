package reactor

import (
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/mempool"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Mempool interface {
		ApplyBlock(block model.SealedBlock) mempool.BlockResult
	}
	Metrics interface {
		ObserveHeight(height uint64)
	}
)
