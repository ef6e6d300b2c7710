package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	blockinsight7000v1 "github.com/goodnatureofminers/blockinsight7000-proto/pkg/blockinsight7000/v1"
	"github.com/google/uuid"
	grpcMiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpcZap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpcRecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpcCtxTags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	grpcPrometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/transport"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/bitcoin"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/journal"
	gossip "github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/network/nats"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/repository/clickhouse"
	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/service"
	"github.com/goodnatureofminers/blockinsight7000-mempool/pkg/batcher"
)

type config struct {
	Addr          string `long:"addr" env:"TXPOOL_ADDR" description:"gRPC listen address" default:":8000"`
	RestAddr      string `long:"rest-addr" env:"TXPOOL_REST_ADDR" description:"REST and websocket listen address" default:":8001"`
	MetricsAddr   string `long:"metrics-addr" env:"TXPOOL_METRICS_ADDR" description:"address for metrics server" default:":2112"`
	Coin          string `long:"coin" env:"TXPOOL_COIN" description:"coin name" default:"btc"`
	Network       string `long:"network" env:"TXPOOL_NETWORK" description:"network name" default:"mainnet"`
	ClickhouseDSN string `long:"clickhouse-dsn" env:"TXPOOL_CLICKHOUSE_DSN" description:"ClickHouse DSN" required:"true"`

	NATSURL string `long:"nats-url" env:"TXPOOL_NATS_URL" description:"NATS server URL" default:"nats://127.0.0.1:4222"`
	PeerID  string `long:"peer-id" env:"TXPOOL_PEER_ID" description:"gossip peer id, random when empty"`

	RPCURL       string        `long:"rpc-url" env:"TXPOOL_RPC_URL" description:"Bitcoin RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser      string        `long:"rpc-user" env:"TXPOOL_RPC_USER" description:"Bitcoin RPC username"`
	RPCPassword  string        `long:"rpc-password" env:"TXPOOL_RPC_PASSWORD" description:"Bitcoin RPC password"`
	ZMQAddr      string        `long:"zmq-addr" env:"TXPOOL_ZMQ_ADDR" description:"bitcoind ZMQ hashblock endpoint (zmq builds only)"`
	PollInterval time.Duration `long:"poll-interval" env:"TXPOOL_POLL_INTERVAL" description:"block polling interval" default:"10s"`
	StartHeight  uint64        `long:"start-height" env:"TXPOOL_START_HEIGHT" description:"first height to import, 0 follows the tip"`

	MaxPoolCount          int           `long:"max-pool-count" env:"TXPOOL_MAX_POOL_COUNT" description:"maximum pending entries" default:"5000"`
	MaxPoolWeight         uint64        `long:"max-pool-weight" env:"TXPOOL_MAX_POOL_WEIGHT" description:"maximum total pending weight" default:"300000000"`
	MinGasPrice           uint64        `long:"min-gas-price" env:"TXPOOL_MIN_GAS_PRICE" description:"minimum admissible gas price" default:"1"`
	MaxTxSize             uint64        `long:"max-tx-size" env:"TXPOOL_MAX_TX_SIZE" description:"maximum transaction weight" default:"400000"`
	StatusChannelCapacity int           `long:"status-channel-capacity" env:"TXPOOL_STATUS_CHANNEL_CAPACITY" description:"per-subscriber status buffer" default:"100"`
	BroadcastRetries      int           `long:"broadcast-retries" env:"TXPOOL_BROADCAST_RETRIES" description:"broadcast retries after the first attempt" default:"3"`
	BroadcastRetryDelay   time.Duration `long:"broadcast-retry-delay" env:"TXPOOL_BROADCAST_RETRY_DELAY" description:"initial broadcast retry delay" default:"500ms"`
	BroadcastRPS          int           `long:"broadcast-rps" env:"TXPOOL_BROADCAST_RPS" description:"broadcasts per second, 0 is unlimited" default:"200"`
	BroadcastQueueSize    int           `long:"broadcast-queue-size" env:"TXPOOL_BROADCAST_QUEUE_SIZE" description:"pending broadcast queue size" default:"1024"`
	LookupWorkers         int           `long:"lookup-workers" env:"TXPOOL_LOOKUP_WORKERS" description:"parallel coin lookups per transaction" default:"8"`
	StopTimeout           time.Duration `long:"stop-timeout" env:"TXPOOL_STOP_TIMEOUT" description:"graceful stop timeout" default:"10s"`

	JournalFlushSize     int           `long:"journal-flush-size" env:"TXPOOL_JOURNAL_FLUSH_SIZE" description:"status events per journal batch, 0 disables the journal" default:"500"`
	JournalFlushInterval time.Duration `long:"journal-flush-interval" env:"TXPOOL_JOURNAL_FLUSH_INTERVAL" description:"journal flush interval" default:"2s"`
	JournalRPS           int           `long:"journal-rps" env:"TXPOOL_JOURNAL_RPS" description:"journal flushes per second" default:"10"`
}

func (c config) serviceConfig() service.Config {
	return service.Config{
		MaxPoolCount:          c.MaxPoolCount,
		MaxPoolWeight:         c.MaxPoolWeight,
		MinGasPrice:           c.MinGasPrice,
		MaxTxSize:             c.MaxTxSize,
		StatusChannelCapacity: c.StatusChannelCapacity,
		BroadcastRetries:      c.BroadcastRetries,
		BroadcastRetryDelay:   c.BroadcastRetryDelay,
		BroadcastRPS:          c.BroadcastRPS,
		BroadcastQueueSize:    c.BroadcastQueueSize,
		LookupWorkers:         c.LookupWorkers,
		StopTimeout:           c.StopTimeout,
	}
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()
	grpcZap.ReplaceGrpcLoggerV2(logger)

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}
	if cfg.PeerID == "" {
		cfg.PeerID = uuid.NewString()
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("txpool failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	svcCfg := cfg.serviceConfig()
	if err := svcCfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, cfg.Coin, cfg.Network,
		metrics.NewClickhouseRepository(cfg.Coin, cfg.Network))
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer func() {
		_ = repo.Close()
	}()

	network, err := gossip.Connect(cfg.NATSURL, gossip.DefaultConfig(cfg.PeerID), metrics.NewGossip(), logger.Named("gossip"))
	if err != nil {
		return fmt.Errorf("init gossip network: %w", err)
	}
	defer func() {
		_ = network.Close()
	}()

	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()

	source, err := bitcoin.NewSource(bitcoin.NewRPCClient(rpcClient, metrics.NewRPCClient(cfg.Coin, cfg.Network)))
	if err != nil {
		return fmt.Errorf("init block source: %w", err)
	}
	blockSignal, err := startBlockSignal(ctx, cfg.ZMQAddr, logger)
	if err != nil {
		return fmt.Errorf("init block signal: %w", err)
	}
	importer, err := bitcoin.NewImporter(source, bitcoin.ImporterConfig{
		PollInterval: cfg.PollInterval,
		StartHeight:  cfg.StartHeight,
	}, blockSignal, logger)
	if err != nil {
		return fmt.Errorf("init block importer: %w", err)
	}

	svc, err := service.New(svcCfg, service.Dependencies{
		Network:   network,
		Importer:  importer,
		CoinStore: repo,
	}, metrics.NewTxPool(), logger)
	if err != nil {
		return fmt.Errorf("init txpool service: %w", err)
	}

	var wg sync.WaitGroup
	if cfg.JournalFlushSize > 0 {
		writer, err := journal.NewWriter(repo, batcher.Config{
			FlushSize:     cfg.JournalFlushSize,
			FlushInterval: cfg.JournalFlushInterval,
			RPS:           cfg.JournalRPS,
		}, logger)
		if err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
		sub := svc.SubscribeStatus()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := writer.Run(context.WithoutCancel(ctx), sub.Events()); err != nil {
				logger.Error("status journal stopped", zap.Error(err))
			}
		}()
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start txpool service: %w", err)
	}

	if err := serveAPI(ctx, cfg, svc, logger); err != nil {
		logger.Error("api server failed", zap.Error(err))
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), svcCfg.StopTimeout+time.Second)
	defer cancel()
	stopErr := svc.Stop(stopCtx)
	wg.Wait()

	if err := svc.Err(); err != nil {
		return err
	}
	return stopErr
}

// serveAPI blocks until ctx is done or the service stops on its own.
func serveAPI(ctx context.Context, cfg config, svc *service.Service, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-svc.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	txPoolHandler, err := transport.NewTxPoolHandler(svc)
	if err != nil {
		return err
	}
	explorerHandler, err := transport.NewExplorerHandler(svc)
	if err != nil {
		return err
	}
	statusStream, err := transport.NewStatusStream(svc, logger)
	if err != nil {
		return err
	}

	chain := []grpc.UnaryServerInterceptor{
		grpcRecovery.UnaryServerInterceptor(),
		grpcCtxTags.UnaryServerInterceptor(),
		grpcPrometheus.UnaryServerInterceptor,
		grpcZap.UnaryServerInterceptor(logger),
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcMiddleware.ChainUnaryServer(chain...)),
	)
	blockinsight7000v1.RegisterExplorerServiceServer(grpcServer, explorerHandler)
	transport.RegisterTxPoolServiceServer(grpcServer, txPoolHandler)
	grpcPrometheus.EnableHandlingTimeHistogram()
	grpcPrometheus.Register(grpcServer)

	socket, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	go func() {
		if serveErr := grpcServer.Serve(socket); serveErr != nil {
			logger.Error("grpc server stopped", zap.Error(serveErr))
			cancel()
		}
	}()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down gRPC server")
		grpcServer.GracefulStop()
	}()

	gw := gwruntime.NewServeMux()
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if err := blockinsight7000v1.RegisterExplorerServiceHandlerFromEndpoint(ctx, gw, cfg.Addr, opts); err != nil {
		return fmt.Errorf("register explorer gateway: %w", err)
	}
	if err := transport.RegisterGateway(gw, txPoolHandler); err != nil {
		return fmt.Errorf("register txpool gateway: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/status/ws", statusStream)
	mux.Handle("/", gw)

	s := &http.Server{
		Addr:              cfg.RestAddr,
		Handler:           cors.Default().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down the http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown http server", zap.Error(err))
		}
	}()

	logger.Info("starting HTTP server", zap.String("addr", cfg.RestAddr))
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	return rpcclient.New(&rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
}
