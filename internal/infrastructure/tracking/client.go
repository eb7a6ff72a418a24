// Package tracking is the client for the container tracking provider:
// subscription management and webhook signature checks.
package tracking

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/domain/shipment"
	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/freightport/backend/internal/infrastructure/telemetry"
)

// SignatureHeader carries hex(HMAC-SHA256(secret, body)) on webhook deliveries
const SignatureHeader = "X-Tracking-Signature"

// EventIDHeader identifies a webhook delivery
const EventIDHeader = "X-Event-ID"

// Client calls the tracking provider REST API
type Client struct {
	baseURL       string
	apiKey        string
	webhookSecret []byte
	callbackURL   string
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewClient creates a tracking provider client
func NewClient(cfg config.TrackingConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		webhookSecret: []byte(cfg.WebhookSecret),
		callbackURL:   cfg.CallbackURL,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

type subscribeRequest struct {
	Type        string `json:"type"`
	Number      string `json:"number"`
	Carrier     string `json:"carrier,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type subscribeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Subscribe registers the reference for push updates and returns the
// provider's subscription id
func (c *Client) Subscribe(ctx context.Context, ref shipment.Reference) (string, error) {
	body, err := json.Marshal(subscribeRequest{
		Type:        string(ref.Type),
		Number:      ref.Number,
		Carrier:     ref.Carrier,
		CallbackURL: c.callbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("tracking: marshal subscribe: %w", err)
	}

	var resp subscribeResponse
	if _, err := c.do(ctx, http.MethodPost, "/v1/subscriptions", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: tracking: subscribe returned no id", shared.ErrUpstream)
	}
	c.logger.Info("tracking subscription created",
		zap.String("subscription_id", resp.ID),
		zap.String("tracking_number", ref.Number))
	return resp.ID, nil
}

// Unsubscribe cancels a subscription. A subscription the provider no longer
// knows is treated as already cancelled.
func (c *Client) Unsubscribe(ctx context.Context, subscriptionID string) error {
	status, err := c.do(ctx, http.MethodDelete, "/v1/subscriptions/"+url.PathEscape(subscriptionID), nil, nil)
	if status == http.StatusNotFound {
		return nil
	}
	return err
}

// VerifySignature checks a webhook body against its signature header
func (c *Client) VerifySignature(body []byte, signature string) bool {
	return VerifySignature(c.webhookSecret, body, signature)
}

// Sign computes the signature the provider sends for a body
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time. An empty secret rejects everything.
func VerifySignature(secret, body []byte, signature string) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) (status int, err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "tracking "+method,
		telemetry.AttrHTTPMethod.String(method),
		attribute.String("url.path", path),
	)
	defer func() {
		if status > 0 {
			span.SetAttributes(telemetry.AttrHTTPStatusCode.Int(status))
		}
		telemetry.EndSpan(span, err)
	}()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("tracking: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: tracking: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("tracking: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			return resp.StatusCode, fmt.Errorf("%w: tracking: %s - %s", shared.ErrUpstream, er.Error, er.Message)
		}
		return resp.StatusCode, fmt.Errorf("%w: tracking: HTTP %d", shared.ErrUpstream, resp.StatusCode)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: tracking: decode response: %v", shared.ErrUpstream, err)
		}
	}
	return resp.StatusCode, nil
}
