package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/service"
)

// TxPoolHandler implements TxPoolServiceServer on top of the pool service.
type TxPoolHandler struct {
	pool TxPool
}

// NewTxPoolHandler returns a TxPoolHandler instance.
func NewTxPoolHandler(pool TxPool) (*TxPoolHandler, error) {
	if pool == nil {
		return nil, errors.New("txpool is required")
	}
	return &TxPoolHandler{pool: pool}, nil
}

// Submit admits a transaction. Rejections are answers, not errors.
func (h *TxPoolHandler) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	tx, err := req.Transaction.Transaction()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := h.pool.Submit(ctx, tx)
	if err != nil {
		if errors.Is(err, service.ErrNotRunning) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	return &SubmitResponse{
		TxID:     res.ID.String(),
		Admitted: res.Admitted,
		Squeezed: res.Squeezed,
		Reason:   string(res.Reason),
	}, nil
}

// Query returns pending transactions matching the request filter.
func (h *TxPoolHandler) Query(_ context.Context, req *QueryRequest) (*TransactionsResponse, error) {
	filter, err := req.filter()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return toResponse(h.pool.Query(filter)), nil
}

// Select returns the highest priced pending transactions that fit max_weight.
func (h *TxPoolHandler) Select(_ context.Context, req *SelectRequest) (*TransactionsResponse, error) {
	if req.MaxWeight == 0 {
		return nil, status.Error(codes.InvalidArgument, "max_weight must be positive")
	}
	return toResponse(h.pool.Select(req.MaxWeight)), nil
}

func (r *QueryRequest) filter() (model.Filter, error) {
	if r.Limit < 0 {
		return model.Filter{}, errors.New("limit must not be negative")
	}
	filter := model.Filter{
		Owner:       r.Owner,
		MinGasPrice: r.MinGasPrice,
		Limit:       r.Limit,
	}
	for _, raw := range r.TxIDs {
		id, err := chainhash.NewHashFromStr(raw)
		if err != nil {
			return model.Filter{}, fmt.Errorf("parse txid %q: %w", raw, err)
		}
		filter.IDs = append(filter.IDs, *id)
	}
	return filter, nil
}

func toResponse(txs []model.Transaction) *TransactionsResponse {
	out := &TransactionsResponse{Transactions: make([]model.TransactionDTO, 0, len(txs))}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, tx.ToDTO())
	}
	return out
}
