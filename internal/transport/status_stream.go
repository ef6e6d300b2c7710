package transport

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	statusWriteWait  = 10 * time.Second
	statusPongWait   = 60 * time.Second
	statusPingPeriod = statusPongWait * 9 / 10
)

// StatusStream pushes pool status events to websocket clients. Each client
// gets its own subscription, so a slow client only loses its own events.
type StatusStream struct {
	source   StatusSource
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewStatusStream returns a StatusStream instance.
func NewStatusStream(source StatusSource, logger *zap.Logger) (*StatusStream, error) {
	if source == nil {
		return nil, errors.New("status source is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &StatusStream{
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.Named("status_stream"),
	}, nil
}

func (s *StatusStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	sub := s.source.SubscribeStatus()
	defer sub.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(statusPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(statusPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(statusPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "txpool stopped"),
					time.Now().Add(statusWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(statusWriteWait))
			if err := conn.WriteJSON(ev.ToDTO()); err != nil {
				s.logger.Debug("status client gone", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(statusWriteWait)); err != nil {
				return
			}
		}
	}
}
