package mempool

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Validator interface {
		Validate(ctx context.Context, tx model.Transaction) error
	}
	Notifier interface {
		Publish(event model.StatusEvent)
	}
	Metrics interface {
		ObserveAdmission(origin model.Origin, reason model.Reason, started time.Time)
		ObserveEviction(reason model.Reason)
		ObserveBlock(included, conflicted int, started time.Time)
		ObservePoolSize(count int, weight uint64)
	}
)
