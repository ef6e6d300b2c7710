// Package relay bridges the gossip network and the mempool: inbound envelopes
// are admitted and answered with a verdict, local admissions are broadcast.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/clock"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

var (
	// ErrGossipStreamClosed is returned by Run when the inbound sequence ends
	// while the relay is still running.
	ErrGossipStreamClosed = errors.New("gossip stream closed")
	// ErrQueueFull is returned by Enqueue when the broadcaster is behind.
	ErrQueueFull = errors.New("broadcast queue full")
)

// Config tunes the outbound broadcaster.
type Config struct {
	// Retries is the number of extra attempts after a failed broadcast.
	Retries    int
	RetryDelay time.Duration
	// RPS caps broadcasts per second; zero means unlimited.
	RPS       int
	QueueSize int
}

// Relay handles gossip in both directions.
type Relay struct {
	cfg     Config
	mempool Mempool
	network Network
	metrics Metrics
	limiter ratelimit.Limiter
	queue   chan model.Transaction
	sleep   func(context.Context, time.Duration) error
	logger  *zap.Logger
}

// New builds a Relay.
func New(cfg Config, mp Mempool, network Network, metrics Metrics, logger *zap.Logger) (*Relay, error) {
	if mp == nil {
		return nil, errors.New("mempool is required")
	}
	if network == nil {
		return nil, errors.New("network is required")
	}
	if metrics == nil {
		return nil, errors.New("relay metrics is required")
	}
	if cfg.QueueSize <= 0 {
		return nil, errors.New("broadcast queue size must be positive")
	}
	if cfg.Retries < 0 {
		return nil, errors.New("broadcast retries must not be negative")
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.RPS > 0 {
		limiter = ratelimit.New(cfg.RPS)
	}

	return &Relay{
		cfg:     cfg,
		mempool: mp,
		network: network,
		metrics: metrics,
		limiter: limiter,
		queue:   make(chan model.Transaction, cfg.QueueSize),
		sleep:   clock.SleepWithContext,
		logger:  logger,
	}, nil
}

// Run consumes inbound envelopes until ctx is done. The sequence is expected
// to stay open for the relay's lifetime.
func (r *Relay) Run(ctx context.Context, envelopes <-chan model.GossipEnvelope) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-envelopes:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrGossipStreamClosed
			}
			r.handle(ctx, env)
		}
	}
}

func (r *Relay) handle(ctx context.Context, env model.GossipEnvelope) {
	verdict := r.verdict(ctx, env)
	r.metrics.ObserveVerdict(verdict)

	if err := r.network.ReportVerdict(ctx, env, verdict); err != nil {
		r.logger.Warn("report verdict failed",
			zap.Stringer("txid", env.Tx.ID),
			zap.String("peer", env.PeerID),
			zap.String("verdict", string(verdict)),
			zap.Error(err),
		)
	}
}

func (r *Relay) verdict(ctx context.Context, env model.GossipEnvelope) model.Verdict {
	if r.mempool.Contains(env.Tx.ID) {
		return model.VerdictIgnore
	}

	res, err := r.mempool.Admit(ctx, env.Tx, model.OriginGossip)
	switch {
	case err != nil:
		r.logger.Warn("admit gossiped transaction failed",
			zap.Stringer("txid", env.Tx.ID),
			zap.String("peer", env.PeerID),
			zap.Error(err),
		)
		return model.VerdictIgnore
	case res.Admitted:
		return model.VerdictAccept
	case res.Reason == model.ReasonDuplicate:
		return model.VerdictIgnore
	default:
		return model.VerdictReject
	}
}

// Enqueue schedules tx for broadcast. It is called once per local admission
// and never waits: a full queue drops the broadcast with ErrQueueFull.
func (r *Relay) Enqueue(tx model.Transaction) error {
	select {
	case r.queue <- tx:
		return nil
	default:
		return fmt.Errorf("enqueue broadcast %s: %w", tx.ID, ErrQueueFull)
	}
}

// RunBroadcaster sends queued transactions until ctx is done.
func (r *Relay) RunBroadcaster(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tx := <-r.queue:
			r.broadcast(ctx, tx)
		}
	}
}

func (r *Relay) broadcast(ctx context.Context, tx model.Transaction) {
	started := time.Now()
	r.limiter.Take()

	var (
		err      error
		attempts int
	)
	for {
		attempts++
		if err = r.network.Broadcast(ctx, tx); err == nil || attempts > r.cfg.Retries {
			break
		}
		delay := clock.Backoff(r.cfg.RetryDelay, attempts, 0)
		r.logger.Warn("broadcast failed, retrying",
			zap.Stringer("txid", tx.ID),
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			err = sleepErr
			break
		}
	}

	r.metrics.ObserveBroadcast(err, attempts, started)
	if err != nil {
		r.logger.Error("transaction not broadcast, it stays pending",
			zap.Stringer("txid", tx.ID),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
	}
}
