package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"routinedash/pkg/metrics"
)

// Reconciler 断线后的兜底：整体失效并重新拉取
type Reconciler interface {
	Reconcile(ctx context.Context, userID string) error
}

type ClientConfig struct {
	BaseURL          string
	UserID           string
	Policy           ReconnectPolicy
	InvalidateDelay  time.Duration
	HandshakeTimeout time.Duration
}

// Client keeps one websocket connection to <base>/ws/dashboard?userId=<user>.
type Client struct {
	cfg        ClientConfig
	merger     *Merger
	reconciler Reconciler
	dialer     *websocket.Dialer
	logger     *zap.Logger
	connected  atomic.Bool
}

func NewClient(cfg ClientConfig, merger *Merger, reconciler Reconciler, logger *zap.Logger) *Client {
	if cfg.Policy == nil {
		cfg.Policy = FixedDelay{Delay: 2 * time.Second}
	}
	if cfg.InvalidateDelay <= 0 {
		cfg.InvalidateDelay = 2 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		merger:     merger,
		reconciler: reconciler,
		dialer:     &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger:     logger,
	}
}

// SocketURL builds the dashboard socket URL for userID.
func SocketURL(base, userID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid websocket base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid websocket scheme %q", u.Scheme)
	}
	u.Path = "/ws/dashboard"
	q := u.Query()
	q.Set("userId", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) Connected() bool { return c.connected.Load() }

// Run connects and reads until ctx is done, reconnecting per the policy.
// Every lost or failed connection schedules a delayed reconciliation.
func (c *Client) Run(ctx context.Context) error {
	target, err := SocketURL(c.cfg.BaseURL, c.cfg.UserID)
	if err != nil {
		return err
	}

	attempt := 0
	for {
		wasConnected, err := c.session(ctx, target)
		if ctx.Err() != nil {
			return nil
		}
		if wasConnected {
			attempt = 0
		}
		attempt++

		delay := c.cfg.Policy.Next(attempt)
		c.logger.Warn("Realtime connection lost",
			zap.String("url", target),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		c.scheduleReconcile(ctx)
		metrics.IncrementReconnect()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (c *Client) session(ctx context.Context, target string) (bool, error) {
	conn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return false, err
	}
	c.connected.Store(true)
	defer c.connected.Store(false)
	c.logger.Info("Realtime connected", zap.String("url", target))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = errors.New("closed by server")
			}
			return true, err
		}
		if _, err := c.merger.HandleRaw(ctx, "websocket", c.cfg.UserID, data); err != nil {
			c.logger.Warn("Dropping realtime frame", zap.Error(err))
		}
	}
}

func (c *Client) scheduleReconcile(ctx context.Context) {
	if c.reconciler == nil {
		return
	}
	time.AfterFunc(c.cfg.InvalidateDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := c.reconciler.Reconcile(ctx, c.cfg.UserID); err != nil {
			c.logger.Warn("Reconciliation after disconnect failed",
				zap.String("user_id", c.cfg.UserID),
				zap.Error(err),
			)
		}
	})
}

// ReconcilerFunc adapts a function to Reconciler.
type ReconcilerFunc func(ctx context.Context, userID string) error

func (f ReconcilerFunc) Reconcile(ctx context.Context, userID string) error { return f(ctx, userID) }
