package transport

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/notify"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/service"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	TxPool interface {
		Submit(ctx context.Context, tx model.Transaction) (service.SubmitResult, error)
		Query(filter model.Filter) []model.Transaction
		Select(maxWeight uint64) []model.Transaction
	}
	HealthReporter interface {
		Health() service.Health
	}
	StatusSource interface {
		SubscribeStatus() *notify.Subscription
	}
)
