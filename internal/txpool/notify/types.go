package notify

import "github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Metrics interface {
		ObservePublished(kind model.EventKind)
		ObserveDropped()
	}
)
