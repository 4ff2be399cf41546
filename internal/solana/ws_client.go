package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// LogStream subscribes to logs of a single program over WebSocket and
// keeps the subscription alive across reconnects.
type LogStream struct {
	endpoint string
	mention  string
	logger   *zap.Logger

	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration
	pingInterval      time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration

	out    chan LogNotification
	done   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup

	connMu sync.Mutex
	conn   *websocket.Conn
}

// StreamOption configures LogStream.
type StreamOption func(*LogStream)

// WithStreamLogger sets the logger used for connection events.
func WithStreamLogger(logger *zap.Logger) StreamOption {
	return func(s *LogStream) {
		s.logger = logger
	}
}

// WithReconnectDelay sets the initial reconnect delay.
func WithReconnectDelay(d time.Duration) StreamOption {
	return func(s *LogStream) {
		s.reconnectDelay = d
	}
}

// WithPingInterval sets the keepalive ping interval.
func WithPingInterval(d time.Duration) StreamOption {
	return func(s *LogStream) {
		s.pingInterval = d
	}
}

// WithReadTimeout sets the per-message read deadline.
func WithReadTimeout(d time.Duration) StreamOption {
	return func(s *LogStream) {
		s.readTimeout = d
	}
}

// NewLogStream connects to the endpoint and subscribes to logs
// mentioning the given program. Notifications are delivered on Logs()
// until Close is called. The initial dial must succeed; later
// disconnects are retried with exponential backoff.
func NewLogStream(ctx context.Context, endpoint, program string, opts ...StreamOption) (*LogStream, error) {
	s := &LogStream{
		endpoint:          endpoint,
		mention:           program,
		logger:            zap.NewNop(),
		reconnectDelay:    1 * time.Second,
		maxReconnectDelay: 30 * time.Second,
		pingInterval:      30 * time.Second,
		readTimeout:       60 * time.Second,
		writeTimeout:      10 * time.Second,
		// Blocking send past this buffer ensures no event loss;
		// the buffer absorbs bursts.
		out:  make(chan LogNotification, 10000),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	s.conn = conn

	s.wg.Add(2)
	go s.run()
	go s.pingLoop()

	return s, nil
}

var _ LogSource = (*LogStream)(nil)

// Logs returns the notification channel.
func (s *LogStream) Logs() <-chan LogNotification {
	return s.out
}

// Close stops the stream and closes the notification channel.
func (s *LogStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.out)
	return nil
}

func (s *LogStream) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// run owns the connection lifecycle: subscribe, read, reconnect.
func (s *LogStream) run() {
	defer s.wg.Done()

	delay := s.reconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(delay):
			}
			delay = delay * 2
			if delay > s.maxReconnectDelay {
				delay = s.maxReconnectDelay
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			conn, err := s.dial(ctx)
			cancel()
			if err != nil {
				s.logger.Warn("reconnect failed", zap.Error(err))
				continue
			}
			s.connMu.Lock()
			s.conn = conn
			s.connMu.Unlock()
			s.logger.Info("reconnected", zap.String("endpoint", s.endpoint))
		}

		subID, err := s.subscribe()
		if err != nil {
			s.logger.Warn("subscribe failed", zap.Error(err))
			s.dropConn()
			continue
		}
		delay = s.reconnectDelay

		// Deliver until the connection breaks.
		if err := s.readLoop(subID); err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Warn("connection lost", zap.Error(err))
			s.dropConn()
		}
	}
}

func (s *LogStream) dropConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// subscribe sends logsSubscribe and waits for the confirmation carrying
// the subscription ID.
func (s *LogStream) subscribe() (int64, error) {
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{s.mention}},
			map[string]string{"commitment": "confirmed"},
		},
	}

	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return 0, fmt.Errorf("not connected")
	}

	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	// The confirmation is the next non-notification frame. Notifications
	// from a prior subscription epoch may still arrive first; deliver
	// them instead of dropping.
	deadline := time.Now().Add(30 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, message, err := conn.ReadMessage()
		if err != nil {
			return 0, fmt.Errorf("read subscribe response: %w", err)
		}

		var notif wsNotification
		if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "logsNotification" {
			s.deliver(&notif)
			continue
		}

		var resp wsSubscribeResponse
		if err := json.Unmarshal(message, &resp); err == nil {
			if resp.Error != nil {
				return 0, fmt.Errorf("subscribe rejected: code=%d %s", resp.Error.Code, resp.Error.Message)
			}
			if resp.Result > 0 {
				return resp.Result, nil
			}
		}
	}
}

// readLoop reads notifications until the connection fails.
func (s *LogStream) readLoop(subID int64) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	for {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var notif wsNotification
		if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "logsNotification" {
			continue
		}
		if notif.Params == nil || notif.Params.Subscription != subID {
			continue
		}
		s.deliver(&notif)
	}
}

// deliver forwards one notification. Blocks rather than drops.
func (s *LogStream) deliver(notif *wsNotification) {
	if notif.Params == nil {
		return
	}
	value := notif.Params.Result.Value
	out := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}

	select {
	case s.out <- out:
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *LogStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
				s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      uint64   `json:"id"`
	Result  int64    `json:"result"` // subscription ID
	Error   *wsError `json:"error"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
