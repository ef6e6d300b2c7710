package service

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Network interface {
		Broadcast(ctx context.Context, tx model.Transaction) error
		GossipedTransactions(ctx context.Context) (<-chan model.GossipEnvelope, error)
		ReportVerdict(ctx context.Context, env model.GossipEnvelope, verdict model.Verdict) error
	}
	BlockImporter interface {
		BlockEvents(ctx context.Context) (<-chan model.SealedBlock, error)
	}
	CoinStore interface {
		Lookup(ctx context.Context, op model.Outpoint) (model.Coin, error)
	}
	Metrics interface {
		ObserveAdmission(origin model.Origin, reason model.Reason, started time.Time)
		ObserveEviction(reason model.Reason)
		ObserveBlock(included, conflicted int, started time.Time)
		ObservePoolSize(count int, weight uint64)
		ObserveVerdict(verdict model.Verdict)
		ObserveBroadcast(err error, attempts int, started time.Time)
		ObserveHeight(height uint64)
		ObservePublished(kind model.EventKind)
		ObserveDropped()
	}
)
