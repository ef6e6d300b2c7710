//go:build zmq

package main

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
	"go.uber.org/zap"
)

// startBlockSignal wakes the block importer on bitcoind hashblock notifications.
func startBlockSignal(ctx context.Context, addr string, logger *zap.Logger) (<-chan struct{}, error) {
	if addr == "" {
		return nil, nil
	}

	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("create zmq socket: %w", err)
	}
	if err := sub.SetSubscribe("hashblock"); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe hashblock: %w", err)
	}
	if err := sub.SetRcvtimeo(time.Second); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("set zmq receive timeout: %w", err)
	}
	if err := sub.Connect(addr); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("connect zmq %s: %w", addr, err)
	}

	signal := make(chan struct{}, 1)
	logger = logger.Named("block_signal")

	go func() {
		defer func() {
			_ = sub.Close()
		}()
		for ctx.Err() == nil {
			parts, err := sub.RecvMessageBytes(0)
			if err != nil {
				// EAGAIN is the receive timeout; it lets the loop observe ctx.
				if zmq4.AsErrno(err) != zmq4.Errno(syscall.EAGAIN) {
					logger.Warn("zmq recv failed", zap.Error(err))
				}
				continue
			}
			if len(parts) < 2 {
				logger.Warn("skip malformed zmq message", zap.Int("parts", len(parts)))
				continue
			}

			select {
			case signal <- struct{}{}:
			default:
			}
		}
	}()

	return signal, nil
}
