package attribution

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"PixRelay/internal/models"
)

type Options struct {
	URL      string
	Token    string
	Platform string
	IsTest   bool
	Timeout  time.Duration
}

// Client forwards order events to the attribution service. Without a
// token it degrades to a logged no-op.
type Client struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Token == "" {
		logger.Warn("attribution token not configured, order events will not be forwarded")
	}
	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

// Forward sends one order event and reports whether the service accepted
// it. Failures are logged, never returned.
func (c *Client) Forward(ctx context.Context, orderID string, status models.OrderStatus, order *models.Order) bool {
	if c.opts.Token == "" {
		c.logger.Warn("skipping attribution forward, no token", "order_id", orderID, "status", status)
		return false
	}

	evt := BuildEvent(orderID, status, order, c.opts.Platform, c.opts.IsTest, c.now())
	body, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error("marshal attribution event", "order_id", orderID, "err", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("build attribution request", "order_id", orderID, "err", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-token", c.opts.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("attribution request failed", "order_id", orderID, "status", evt.Status, "err", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("attribution rejected event",
			"order_id", orderID,
			"status", evt.Status,
			"http_status", resp.StatusCode,
			"body", strings.TrimSpace(string(raw)),
		)
		return false
	}

	c.logger.Info("attribution event sent", "order_id", orderID, "status", evt.Status)
	return true
}
