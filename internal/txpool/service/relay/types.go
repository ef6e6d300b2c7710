package relay

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/mempool"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Mempool interface {
		Contains(id model.TxID) bool
		Admit(ctx context.Context, tx model.Transaction, origin model.Origin) (mempool.Result, error)
	}
	Network interface {
		Broadcast(ctx context.Context, tx model.Transaction) error
		ReportVerdict(ctx context.Context, env model.GossipEnvelope, verdict model.Verdict) error
	}
	Metrics interface {
		ObserveVerdict(verdict model.Verdict)
		ObserveBroadcast(err error, attempts int, started time.Time)
	}
)
