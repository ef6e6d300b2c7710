package journal

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Store interface {
		InsertStatusEvents(ctx context.Context, events []model.StatusEvent) error
	}
)
