package senders

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rtcscope/internal/core/domain"
	"rtcscope/pkg/logger"
	"rtcscope/pkg/retry"
	"rtcscope/pkg/tracing"
)

// WebSocketConfig configures the websocket sample sink.
type WebSocketConfig struct {
	URL               string
	JWTSecret         string
	TokenTTL          time.Duration
	ClientID          domain.ClientID
	CallID            domain.CallID
	MessagesPerSecond float64
	Burst             int
	MaxRetries        int
	WriteTimeout      time.Duration
	HandshakeTimeout  time.Duration
}

type sinkClaims struct {
	ClientID string `json:"client_id"`
	CallID   string `json:"call_id,omitempty"`
	jwt.RegisteredClaims
}

// WebSocketSink ships sample batches over a websocket, authenticating the
// handshake with a short-lived HS256 token. The connection is dialed lazily
// on the first send and redialed after a write failure.
type WebSocketSink struct {
	cfg      WebSocketConfig
	logger   *zap.SugaredLogger
	ctxLog   *logger.ContextLogger
	retryCfg retry.Config
	limiter  *rate.Limiter

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWebSocketSink creates a sink for cfg.URL. No connection is attempted
// until the first Send.
func NewWebSocketSink(cfg WebSocketConfig, log *zap.SugaredLogger) *WebSocketSink {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}

	retryCfg := retry.DefaultConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxAttempts = cfg.MaxRetries
	}
	retryCfg.NonRetryableErrors = []error{domain.ErrSinkClosed}

	return &WebSocketSink{
		cfg:      cfg,
		logger:   log,
		ctxLog:   logger.NewContextLogger(log.Desugar()),
		retryCfg: retryCfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), cfg.Burst),
	}
}

// Send writes the batch as a single JSON message, retrying transient
// failures with a fresh connection.
func (s *WebSocketSink) Send(ctx context.Context, batch []*domain.ClientSample) error {
	if len(batch) == 0 {
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, span := tracing.TraceSenderFlush(ctx, "websocket", len(batch))
	defer span.End()

	err := retry.Retry(ctx, s.retryCfg, func() error {
		return s.writeBatch(ctx, batch)
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		s.ctxLog.LogError(ctx, err, "sample batch send failed", zap.Int("batch_size", len(batch)))
	}
	return err
}

func (s *WebSocketSink) writeBatch(ctx context.Context, batch []*domain.ClientSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSinkClosed
	}

	if s.conn == nil {
		if err := s.dial(ctx); err != nil {
			return err
		}
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := s.conn.WriteJSON(batch); err != nil {
		// Force a redial on the next attempt.
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("write batch: %w", err)
	}

	return nil
}

// dial expects s.mu to be held.
func (s *WebSocketSink) dial(ctx context.Context) error {
	token, err := s.signToken()
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: status %d: %w", s.cfg.URL, resp.StatusCode, err)
		}
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}

	s.conn = conn
	s.logger.Infow("sample sink connected", "url", s.cfg.URL)
	return nil
}

func (s *WebSocketSink) signToken() (string, error) {
	now := time.Now()
	claims := &sinkClaims{
		ClientID: string(s.cfg.ClientID),
		CallID:   string(s.cfg.CallID),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// Close sends a close frame when connected and releases the connection.
func (s *WebSocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.conn == nil {
		return nil
	}

	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := s.conn.Close()
	s.conn = nil
	return err
}
