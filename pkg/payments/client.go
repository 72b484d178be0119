package payments

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

	"github.com/flintflours/storefront-backend/pkg/config"
	"github.com/flintflours/storefront-backend/pkg/enums"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/pricing"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL             = "https://api.razorpay.com/v1"
	defaultCurrency            = enums.CurrencyINR
	requestBodyReadLimit int64 = 1024
)

var errCredentialsRequired = errors.New("payment gateway key id and secret are required")

// Client creates gateway orders that the storefront checkout hands to the
// payment widget.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
	currency   enums.Currency
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a gateway client from the payment config.
func NewClient(cfg config.PaymentConfig, opts ...Option) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errCredentialsRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		keyID:      strings.TrimSpace(cfg.KeyID),
		keySecret:  strings.TrimSpace(cfg.KeySecret),
		baseURL:    defaultBaseURL,
		currency:   defaultCurrency,
		httpClient: &http.Client{Timeout: timeout},
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		client.baseURL = base
	}
	if strings.TrimSpace(cfg.Currency) != "" {
		cur, err := enums.ParseCurrency(cfg.Currency)
		if err != nil {
			return nil, err
		}
		client.currency = cur
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// KeyID is the public key the checkout widget is opened with.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// Currency is the ISO code orders are created in.
func (c *Client) Currency() string {
	if c == nil {
		return defaultCurrency.String()
	}
	return c.currency.String()
}

// VerifySignature checks a payment callback signature against the key secret.
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(c.keySecret, gatewayOrderID, paymentID, signature)
}

// CreateOrderRequest describes a gateway order for a storefront order.
type CreateOrderRequest struct {
	Amount  decimal.Decimal
	Receipt string
	Notes   map[string]string
}

// GatewayOrder is the gateway's view of a created order.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder registers an order with the gateway. Amounts are sent in minor units.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	amount := pricing.MinorUnits(req.Amount)
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}

	payload, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": c.currency.String(),
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal gateway order request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("orders"), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build gateway order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute gateway order request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "gateway order request failed")
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway order response")
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway order response missing id")
	}
	return &order, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
