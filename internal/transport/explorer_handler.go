// Package transport exposes the transaction pool over gRPC, REST and websocket.
package transport

import (
	"context"
	"errors"
	"fmt"

	blockinsight7000v1 "github.com/goodnatureofminers/blockinsight7000-proto/pkg/blockinsight7000/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ExplorerHandler implements ExplorerServiceServer and reports pool health.
type ExplorerHandler struct {
	blockinsight7000v1.UnimplementedExplorerServiceServer
	health HealthReporter
}

// NewExplorerHandler returns an ExplorerHandler instance.
func NewExplorerHandler(health HealthReporter) (*ExplorerHandler, error) {
	if health == nil {
		return nil, errors.New("health reporter is required")
	}
	return &ExplorerHandler{health: health}, nil
}

// Health reports healthy while the pool service runs and Unavailable otherwise.
func (h *ExplorerHandler) Health(_ context.Context, _ *blockinsight7000v1.HealthRequest) (*blockinsight7000v1.HealthResponse, error) {
	hs := h.health.Health()
	if !hs.Running {
		msg := "txpool is not running"
		if hs.Err != nil {
			msg = fmt.Sprintf("txpool failed: %v", hs.Err)
		}
		return nil, status.Error(codes.Unavailable, msg)
	}

	desc := fmt.Sprintf("pending=%d weight=%d", hs.Pending, hs.Weight)
	if hs.HasHeight {
		desc += fmt.Sprintf(" height=%d", hs.LastHeight)
	}
	return &blockinsight7000v1.HealthResponse{
		Status:      blockinsight7000v1.HealthStatus_HEALTH_STATUS_HEALTHY,
		Description: desc,
	}, nil
}
