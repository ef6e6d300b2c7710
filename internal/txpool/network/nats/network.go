// Package nats carries transaction gossip over NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

// Config selects subjects and the local peer identity.
type Config struct {
	TxSubject      string
	VerdictSubject string
	PeerID         string
	Buffer         int
}

// DefaultConfig returns subjects used when nothing is overridden.
func DefaultConfig(peerID string) Config {
	return Config{
		TxSubject:      "txpool.gossip.tx",
		VerdictSubject: "txpool.gossip.verdict",
		PeerID:         peerID,
		Buffer:         256,
	}
}

type txMessage struct {
	MessageID string               `json:"message_id"`
	PeerID    string               `json:"peer_id"`
	Tx        model.TransactionDTO `json:"tx"`
}

type verdictMessage struct {
	MessageID string `json:"message_id"`
	Reporter  string `json:"reporter"`
	TxID      string `json:"txid"`
	Verdict   string `json:"verdict"`
}

// Network is the gossip network collaborator backed by a NATS connection.
type Network struct {
	conn    *nats.Conn
	cfg     Config
	metrics Metrics
	logger  *zap.Logger
}

// Connect dials the NATS server at url.
func Connect(url string, cfg Config, metrics Metrics, logger *zap.Logger) (*Network, error) {
	conn, err := nats.Connect(url,
		nats.Name("txpool-"+cfg.PeerID),
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	n, err := New(conn, cfg, metrics, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return n, nil
}

// New wraps an established connection.
func New(conn *nats.Conn, cfg Config, metrics Metrics, logger *zap.Logger) (*Network, error) {
	if conn == nil {
		return nil, errors.New("nats connection is required")
	}
	if metrics == nil {
		return nil, errors.New("gossip metrics is required")
	}
	if cfg.PeerID == "" {
		return nil, errors.New("peer id is required")
	}
	if cfg.TxSubject == "" || cfg.VerdictSubject == "" {
		return nil, errors.New("gossip subjects are required")
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1
	}
	return &Network{conn: conn, cfg: cfg, metrics: metrics, logger: logger}, nil
}

// Broadcast publishes tx to every peer.
func (n *Network) Broadcast(ctx context.Context, tx model.Transaction) (err error) {
	started := time.Now()
	defer func() {
		n.metrics.Observe("broadcast", err, started)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(txMessage{
		MessageID: uuid.NewString(),
		PeerID:    n.cfg.PeerID,
		Tx:        tx.ToDTO(),
	})
	if err != nil {
		return fmt.Errorf("encode transaction %s: %w", tx.ID, err)
	}
	if err = n.conn.Publish(n.cfg.TxSubject, data); err != nil {
		return fmt.Errorf("publish transaction %s: %w", tx.ID, err)
	}
	return nil
}

// GossipedTransactions subscribes to peer gossip. The returned channel stays
// open until ctx is done; our own broadcasts are filtered out.
func (n *Network) GossipedTransactions(ctx context.Context) (<-chan model.GossipEnvelope, error) {
	msgs := make(chan *nats.Msg, n.cfg.Buffer)
	sub, err := n.conn.ChanSubscribe(n.cfg.TxSubject, msgs)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", n.cfg.TxSubject, err)
	}

	out := make(chan model.GossipEnvelope)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
				n.logger.Warn("unsubscribe gossip failed", zap.Error(err))
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				env, ok := n.decode(msg)
				if !ok {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- env:
				}
			}
		}
	}()
	return out, nil
}

func (n *Network) decode(msg *nats.Msg) (model.GossipEnvelope, bool) {
	started := time.Now()

	var m txMessage
	err := json.Unmarshal(msg.Data, &m)
	if err == nil && m.PeerID == n.cfg.PeerID {
		return model.GossipEnvelope{}, false
	}
	var tx model.Transaction
	if err == nil {
		tx, err = m.Tx.Transaction()
	}
	n.metrics.Observe("decode", err, started)
	if err != nil {
		n.logger.Warn("drop undecodable gossip", zap.String("subject", msg.Subject), zap.Error(err))
		return model.GossipEnvelope{}, false
	}
	return model.GossipEnvelope{Tx: tx, PeerID: m.PeerID, MessageID: m.MessageID}, true
}

// ReportVerdict answers the originating peer on its verdict subject.
func (n *Network) ReportVerdict(ctx context.Context, env model.GossipEnvelope, verdict model.Verdict) (err error) {
	started := time.Now()
	defer func() {
		n.metrics.Observe("report_verdict", err, started)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(verdictMessage{
		MessageID: env.MessageID,
		Reporter:  n.cfg.PeerID,
		TxID:      env.Tx.ID.String(),
		Verdict:   string(verdict),
	})
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	if err = n.conn.Publish(VerdictSubject(n.cfg.VerdictSubject, env.PeerID), data); err != nil {
		return fmt.Errorf("publish verdict for %s: %w", env.Tx.ID, err)
	}
	return nil
}

// VerdictSubject is the subject a peer listens on for verdicts about its gossip.
func VerdictSubject(prefix, peerID string) string {
	return prefix + "." + peerID
}

// Close drains the connection.
func (n *Network) Close() error {
	return n.conn.Drain()
}
