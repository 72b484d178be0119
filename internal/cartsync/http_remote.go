package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flintflours/storefront-backend/pkg/types"
)

const (
	cartPath              = "/api/v1/cart"
	responseBodyReadLimit = 4096
)

// RemoteError is a non-2xx answer from the cart API.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("cart api status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("cart api status %d (%s): %s", e.Status, e.Code, e.Message)
}

// CartItems is the payload of GET /api/v1/cart.
type CartItems struct {
	Items []Line `json:"items"`
}

// LineRequest is the body of cart writes.
type LineRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// HTTPRemote talks to the storefront cart API on behalf of one signed-in shopper.
type HTTPRemote struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

type RemoteOption func(*HTTPRemote)

func WithRemoteHTTPClient(client *http.Client) RemoteOption {
	return func(r *HTTPRemote) {
		if client != nil {
			r.httpClient = client
		}
	}
}

func NewHTTPRemote(baseURL, token string, opts ...RemoteOption) *HTTPRemote {
	r := &HTTPRemote{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *HTTPRemote) Fetch(ctx context.Context) ([]Line, error) {
	var out CartItems
	if err := r.do(ctx, http.MethodGet, r.baseURL+cartPath, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (r *HTTPRemote) Upsert(ctx context.Context, key Key, quantity int) error {
	return r.do(ctx, http.MethodPost, r.baseURL+cartPath, lineRequest(key, quantity), nil)
}

func (r *HTTPRemote) Update(ctx context.Context, key Key, quantity int) error {
	return r.do(ctx, http.MethodPut, r.baseURL+cartPath, lineRequest(key, quantity), nil)
}

func (r *HTTPRemote) Delete(ctx context.Context, key Key) error {
	q := url.Values{}
	q.Set("productId", key.ProductID.String())
	q.Set("variantId", key.VariantID.String())
	return r.do(ctx, http.MethodDelete, r.baseURL+cartPath+"?"+q.Encode(), nil, nil)
}

func lineRequest(key Key, quantity int) *LineRequest {
	return &LineRequest{
		ProductID: key.ProductID.String(),
		VariantID: key.VariantID.String(),
		Quantity:  quantity,
	}
}

func (r *HTTPRemote) do(ctx context.Context, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal cart request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build cart request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute cart request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		remoteErr := &RemoteError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var envelope types.ErrorEnvelope
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Code != "" {
			remoteErr.Code = envelope.Error.Code
			remoteErr.Message = envelope.Error.Message
		}
		return remoteErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	envelope := types.SuccessEnvelope{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode cart response: %w", err)
	}
	return nil
}
