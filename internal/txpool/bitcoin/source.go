package bitcoin

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
	"github.com/goodnatureofminers/blockinsight7000-mempool/pkg/safe"
)

// Source reads sealed blocks from a node over RPC.
type Source struct {
	rpc NodeClient
}

// NewSource creates a Source.
func NewSource(rpc NodeClient) (*Source, error) {
	if rpc == nil {
		return nil, errors.New("node client is required")
	}
	return &Source{rpc: rpc}, nil
}

// LatestHeight returns the latest block height from the node.
func (s *Source) LatestHeight(_ context.Context) (uint64, error) {
	count, err := s.rpc.GetBlockCount()
	if err != nil {
		return 0, err
	}
	height, err := safe.Uint64(count)
	if err != nil {
		return 0, fmt.Errorf("block count overflow: %w", err)
	}
	return height, nil
}

// FetchBlock retrieves the block at the given height.
func (s *Source) FetchBlock(ctx context.Context, height uint64) (model.SealedBlock, error) {
	rpcHeight, err := safe.Int64(height)
	if err != nil {
		return model.SealedBlock{}, fmt.Errorf("block height exceeds rpc limit: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return model.SealedBlock{}, err
	}
	hash, err := s.rpc.GetBlockHash(rpcHeight)
	if err != nil {
		return model.SealedBlock{}, fmt.Errorf("get block hash at height %d: %w", height, err)
	}
	msg, err := s.rpc.GetBlock(hash)
	if err != nil {
		return model.SealedBlock{}, fmt.Errorf("get block %s: %w", hash, err)
	}
	return SealedBlockFromWire(height, msg), nil
}
