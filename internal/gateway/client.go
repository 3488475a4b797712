package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrMalformedResponse = errors.New("gateway returned no pix data")

// APIError carries a non-2xx gateway response so callers can relay it.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("gateway http status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("gateway http status %d", e.StatusCode)
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// CreateTransaction registers a PIX charge and returns the copy-paste code.
func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*Transaction, error) {
	if req.PaymentMethod == "" {
		req.PaymentMethod = "pix"
	}
	var resp createTransactionResponse
	if err := c.postJSON(ctx, c.baseURL+"/v1/transactions", req, &resp); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" || resp.Data.Pix.Code == "" {
		return nil, ErrMalformedResponse
	}
	return &Transaction{
		ID:           resp.Data.ID,
		Status:       resp.Data.Status,
		PixCode:      resp.Data.Pix.Code,
		QRCodeBase64: resp.Data.Pix.QRCodeBase64,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "PixRelay")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
