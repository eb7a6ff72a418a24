// Package ocr is a client for the document recognition API used to pre-fill
// onboarding forms and shipping documents.
package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/cache"
	"github.com/freightport/backend/internal/infrastructure/config"
)

// DocumentType selects the recognition model
type DocumentType string

const (
	DocumentBusinessLicense DocumentType = "BUSINESS_LICENSE"
	DocumentBillOfLading    DocumentType = "BILL_OF_LADING"
	DocumentIDCard          DocumentType = "ID_CARD"
)

// IsValid checks if the document type is supported
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentBusinessLicense, DocumentBillOfLading, DocumentIDCard:
		return true
	}
	return false
}

func (d DocumentType) endpoint() string {
	switch d {
	case DocumentBusinessLicense:
		return "/rest/2.0/ocr/v1/business_license"
	case DocumentIDCard:
		return "/rest/2.0/ocr/v1/idcard"
	default:
		return "/rest/2.0/ocr/v1/accurate_basic"
	}
}

// maxImageBytes is the provider limit on the decoded image
const maxImageBytes = 4 << 20

var ErrImageTooLarge = errors.New("ocr: image exceeds 4MB")

// Result is a normalized recognition result
type Result struct {
	DocumentType DocumentType      `json:"document_type"`
	Fields       map[string]string `json:"fields"`
	Words        []string          `json:"words"`
}

// Client calls the recognition API
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	tokens     cache.ValueCache
	sf         singleflight.Group
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates an OCR client. tokens caches the bearer access token.
func NewClient(cfg config.OCRConfig, tokens cache.ValueCache, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if tokens == nil {
		tokens = cache.NewInMemoryValueCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
		now:        time.Now,
	}
}

type providerError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e providerError) err() error {
	return fmt.Errorf("%w: ocr error_code=%d %s", shared.ErrUpstream, e.Code, e.Message)
}

func (c *Client) tokenKey() string {
	return "ocr:access_token:" + c.apiKey
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if tok, ok, err := c.tokens.Get(ctx, c.tokenKey()); err == nil && ok {
		return tok, nil
	}
	v, err, _ := c.sf.Do(c.tokenKey(), func() (any, error) {
		q := url.Values{}
		q.Set("grant_type", "client_credentials")
		q.Set("client_id", c.apiKey)
		q.Set("client_secret", c.apiSecret)

		var resp struct {
			providerError
			AccessToken string `json:"access_token"`
			ExpiresIn   int64  `json:"expires_in"`
			OAuthError  string `json:"error"`
			OAuthDesc   string `json:"error_description"`
		}
		if err := c.post(ctx, "/oauth/2.0/token?"+q.Encode(), nil, &resp); err != nil {
			return "", err
		}
		if resp.OAuthError != "" {
			return "", fmt.Errorf("%w: ocr token: %s %s", shared.ErrUpstream, resp.OAuthError, resp.OAuthDesc)
		}
		if resp.AccessToken == "" {
			return "", fmt.Errorf("%w: ocr token endpoint returned no access_token", shared.ErrUpstream)
		}
		ttl := time.Duration(resp.ExpiresIn)*time.Second - time.Hour
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		if err := c.tokens.Set(ctx, c.tokenKey(), resp.AccessToken, ttl); err != nil {
			c.logger.Warn("ocr token cache write failed", zap.Error(err))
		}
		return resp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Recognize runs OCR on an image
func (c *Client) Recognize(ctx context.Context, docType DocumentType, image []byte) (*Result, error) {
	if !docType.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_INPUT", "unsupported document type %q", docType)
	}
	if len(image) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "image is empty")
	}
	if len(image) > maxImageBytes {
		return nil, ErrImageTooLarge
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(image))
	if docType == DocumentIDCard {
		form.Set("id_card_side", "front")
	}

	var resp struct {
		providerError
		WordsResult json.RawMessage `json:"words_result"`
	}
	start := c.now()
	path := docType.endpoint() + "?access_token=" + url.QueryEscape(token)
	if err := c.post(ctx, path, strings.NewReader(form.Encode()), &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, resp.err()
	}
	c.logger.Debug("ocr recognized",
		zap.String("document_type", string(docType)),
		zap.Duration("duration", c.now().Sub(start)))

	return parseWords(docType, resp.WordsResult)
}

func (c *Client) post(ctx context.Context, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("ocr: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ocr: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return fmt.Errorf("ocr: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: ocr: HTTP %d", shared.ErrUpstream, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: ocr: decode response: %v", shared.ErrUpstream, err)
	}
	return nil
}

type wordsItem struct {
	Words string `json:"words"`
}

// parseWords handles both result shapes: keyed fields for structured
// documents and a list of lines for general text.
func parseWords(docType DocumentType, raw json.RawMessage) (*Result, error) {
	res := &Result{DocumentType: docType, Fields: map[string]string{}}
	if len(raw) == 0 || string(raw) == "null" {
		return res, nil
	}

	var keyed map[string]wordsItem
	if err := json.Unmarshal(raw, &keyed); err == nil {
		labels := make([]string, 0, len(keyed))
		for label := range keyed {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			v := strings.TrimSpace(keyed[label].Words)
			if v == "" || v == "无" {
				continue
			}
			res.Words = append(res.Words, v)
			res.Fields[normalizeKey(docType, label)] = v
		}
		return res, nil
	}

	var lines []wordsItem
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("%w: ocr: unexpected words_result", shared.ErrUpstream)
	}
	for _, l := range lines {
		if w := strings.TrimSpace(l.Words); w != "" {
			res.Words = append(res.Words, w)
		}
	}
	if docType == DocumentBillOfLading {
		extractBillOfLading(res)
	}
	return res, nil
}
