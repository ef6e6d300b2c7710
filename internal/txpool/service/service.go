// Package service is the lifecycle container of the transaction pool. It
// wires the mempool to the network, the block importer and the coin store and
// exposes the public API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/mempool"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/notify"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/pool"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/service/reactor"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/service/relay"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/validator"
)

var (
	// ErrStartup wraps a collaborator sequence that could not be obtained.
	ErrStartup = errors.New("service startup failed")
	// ErrShutdownTimeout is returned when workers do not drain in time.
	ErrShutdownTimeout = errors.New("service shutdown timed out")
	// ErrNotRunning is returned by API calls outside of a running service.
	ErrNotRunning = errors.New("service is not running")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("service already started")
)

type state int

const (
	stateIdle state = iota
	stateRunning
	stateFailed
	stateStopped
)

// Dependencies are the external collaborators. All of them are required.
type Dependencies struct {
	Network   Network
	Importer  BlockImporter
	CoinStore CoinStore
}

// SubmitResult is the synchronous answer to an API submission.
type SubmitResult struct {
	ID       model.TxID
	Admitted bool
	// Squeezed is set when the transaction was admitted and then evicted for
	// capacity in the same step.
	Squeezed bool
	Reason   model.Reason
}

// Health is a point-in-time view of the service.
type Health struct {
	Running    bool
	Pending    int
	Weight     uint64
	LastHeight uint64
	HasHeight  bool
	Err        error
}

// Service owns one worker per inbound sequence plus the broadcaster.
type Service struct {
	cfg     Config
	deps    Dependencies
	logger  *zap.Logger
	hub     *notify.Hub
	mempool *mempool.Mempool
	relay   *relay.Relay
	reactor *reactor.Reactor

	mu       sync.Mutex
	state    state
	err      error
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once
}

// New builds a Service. Nothing runs until Start.
func New(cfg Config, deps Dependencies, metrics Metrics, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if deps.Network == nil {
		return nil, errors.New("network is required")
	}
	if deps.Importer == nil {
		return nil, errors.New("block importer is required")
	}
	if deps.CoinStore == nil {
		return nil, errors.New("coin store is required")
	}
	if metrics == nil {
		return nil, errors.New("service metrics is required")
	}

	hub, err := notify.NewHub(cfg.StatusChannelCapacity, metrics)
	if err != nil {
		return nil, fmt.Errorf("create status notifier: %w", err)
	}
	v, err := validator.New(deps.CoinStore, validator.Config{
		MaxTxSize:     cfg.MaxTxSize,
		MinGasPrice:   cfg.MinGasPrice,
		LookupWorkers: cfg.LookupWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}
	mp, err := mempool.New(
		pool.New(pool.Limits{MaxCount: cfg.MaxPoolCount, MaxWeight: cfg.MaxPoolWeight}),
		v, hub, metrics, logger.Named("mempool"),
	)
	if err != nil {
		return nil, fmt.Errorf("create mempool: %w", err)
	}
	rl, err := relay.New(relay.Config{
		Retries:    cfg.BroadcastRetries,
		RetryDelay: cfg.BroadcastRetryDelay,
		RPS:        cfg.BroadcastRPS,
		QueueSize:  cfg.BroadcastQueueSize,
	}, mp, deps.Network, metrics, logger.Named("relay"))
	if err != nil {
		return nil, fmt.Errorf("create relay: %w", err)
	}
	rc, err := reactor.New(mp, metrics, logger.Named("reactor"))
	if err != nil {
		return nil, fmt.Errorf("create reactor: %w", err)
	}

	return &Service{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		hub:     hub,
		mempool: mp,
		relay:   rl,
		reactor: rc,
		done:    make(chan struct{}),
	}, nil
}

// Start obtains the gossip and block sequences and starts the workers. The
// workers outlive ctx; they stop on Stop or on a fatal failure.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateIdle {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	gossip, err := s.deps.Network.GossipedTransactions(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: open gossip stream: %w", ErrStartup, err)
	}
	blocks, err := s.deps.Importer.BlockEvents(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: open block stream: %w", ErrStartup, err)
	}

	s.cancel = cancel
	s.state = stateRunning

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		if err := s.relay.Run(runCtx, gossip); err != nil && runCtx.Err() == nil {
			s.logger.Error("gossip worker stopped; API submissions keep working", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		if err := s.reactor.Run(runCtx, blocks); err != nil && runCtx.Err() == nil {
			s.fail(err)
		}
	}()
	go func() {
		defer s.wg.Done()
		_ = s.relay.RunBroadcaster(runCtx)
	}()

	s.logger.Info("service started")
	return nil
}

// fail stops the service after a fatal worker error.
func (s *Service) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateRunning {
		return
	}
	s.logger.Error("fatal worker failure, stopping", zap.Error(err))
	s.state = stateFailed
	s.err = err
	s.cancel()
	s.closeDone()
	s.hub.Close()
}

func (s *Service) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Stop cancels the workers and waits for them to drain within the configured
// stop timeout or until ctx ends.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case stateIdle:
		s.state = stateStopped
		s.mu.Unlock()
		s.closeDone()
		s.hub.Close()
		return nil
	case stateStopped:
		s.mu.Unlock()
		return nil
	case stateRunning:
		s.state = stateStopped
	}
	s.cancel()
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()

	var err error
	select {
	case <-drained:
	case <-timer.C:
		err = ErrShutdownTimeout
	case <-ctx.Done():
		err = fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}

	s.closeDone()
	s.hub.Close()
	if err != nil {
		s.logger.Warn("workers did not drain", zap.Error(err))
		return err
	}
	s.logger.Info("service stopped")
	return nil
}

func (s *Service) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

// Submit admits tx from the API and queues it for broadcast once admitted.
func (s *Service) Submit(ctx context.Context, tx model.Transaction) (SubmitResult, error) {
	if !s.running() {
		return SubmitResult{}, ErrNotRunning
	}

	res, err := s.mempool.Admit(ctx, tx, model.OriginAPI)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submit transaction: %w", err)
	}
	if res.Admitted {
		if err := s.relay.Enqueue(tx); err != nil {
			s.logger.Warn("broadcast dropped",
				zap.Stringer("txid", tx.ID), zap.Bool("pending", !res.Squeezed), zap.Error(err))
		}
	}
	return SubmitResult{ID: tx.ID, Admitted: res.Admitted, Squeezed: res.Squeezed, Reason: res.Reason}, nil
}

// Query returns a snapshot of pending transactions matching filter.
func (s *Service) Query(filter model.Filter) []model.Transaction {
	return s.mempool.Query(filter)
}

// Select returns pending transactions by descending gas price within maxWeight.
func (s *Service) Select(maxWeight uint64) []model.Transaction {
	return s.mempool.Select(maxWeight)
}

// SubscribeStatus returns a subscription to status events published from now
// on. The stream ends when the service stops or fails.
func (s *Service) SubscribeStatus() *notify.Subscription {
	return s.hub.Subscribe()
}

// Done is closed when the service stops or fails.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Err returns the fatal failure that stopped the service, if any.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Health reports the current state of the service.
func (s *Service) Health() Health {
	pending, weight := s.mempool.Stats()
	height, ok := s.reactor.LastHeight()

	s.mu.Lock()
	defer s.mu.Unlock()
	return Health{
		Running:    s.state == stateRunning,
		Pending:    pending,
		Weight:     weight,
		LastHeight: height,
		HasHeight:  ok,
		Err:        s.err,
	}
}
