package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/cache"
	"github.com/freightport/backend/internal/infrastructure/config"
)

const (
	defaultBaseURL = "https://api.weixin.qq.com"

	// tokens are refreshed this long before WeChat expires them
	tokenExpiryMargin = 5 * time.Minute

	errCodeInvalidToken = 40001
	errCodeTokenExpired = 42001
)

// Errors returned by the client
var (
	ErrMissingAppID  = errors.New("wechat: app id is required")
	ErrMissingSecret = errors.New("wechat: app secret is required")
	ErrEmptyCode     = errors.New("wechat: login code is required")
)

// APIError is a non-zero errcode returned by the WeChat API
type APIError struct {
	Code    int    `json:"errcode"`
	Message string `json:"errmsg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wechat: errcode=%d errmsg=%s", e.Code, e.Message)
}

// Unwrap lets callers match upstream failures with errors.Is(err, shared.ErrUpstream)
func (e *APIError) Unwrap() error {
	return shared.ErrUpstream
}

// Session is the result of a jscode2session exchange
type Session struct {
	OpenID     string
	UnionID    string
	SessionKey string
}

// SubscribeMessage is a mini-program subscribe message
type SubscribeMessage struct {
	ToUser           string
	TemplateID       string
	Page             string
	Data             map[string]string
	MiniProgramState string
	Lang             string
}

// Client talks to the WeChat mini-program server API
type Client struct {
	baseURL     string
	appID       string
	secret      string
	miniProgram string
	httpClient  *http.Client
	tokens      cache.ValueCache
	sf          singleflight.Group
	logger      *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a WeChat client. tokens caches the access token and may be
// shared across instances when it is Redis-backed.
func NewClient(cfg config.WechatConfig, tokens cache.ValueCache, opts ...Option) (*Client, error) {
	if cfg.AppID == "" {
		return nil, ErrMissingAppID
	}
	if cfg.AppSecret == "" {
		return nil, ErrMissingSecret
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if tokens == nil {
		tokens = cache.NewInMemoryValueCache()
	}
	c := &Client{
		baseURL:     baseURL,
		appID:       cfg.AppID,
		secret:      cfg.AppSecret,
		miniProgram: cfg.MiniProgram,
		httpClient:  &http.Client{Timeout: timeout},
		tokens:      tokens,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Code2Session exchanges a wx.login code for the user's open id
func (c *Client) Code2Session(ctx context.Context, code string) (*Session, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}
	q := url.Values{}
	q.Set("appid", c.appID)
	q.Set("secret", c.secret)
	q.Set("js_code", code)
	q.Set("grant_type", "authorization_code")

	var resp struct {
		APIError
		OpenID     string `json:"openid"`
		UnionID    string `json:"unionid"`
		SessionKey string `json:"session_key"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/sns/jscode2session?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, &APIError{Code: resp.Code, Message: resp.Message}
	}
	if resp.OpenID == "" {
		return nil, fmt.Errorf("%w: jscode2session returned no openid", shared.ErrUpstream)
	}
	return &Session{OpenID: resp.OpenID, UnionID: resp.UnionID, SessionKey: resp.SessionKey}, nil
}

func (c *Client) tokenKey() string {
	return "wechat:access_token:" + c.appID
}

// AccessToken returns a cached server access token, fetching a new one when needed.
// Concurrent misses share a single upstream request.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if token, ok, err := c.tokens.Get(ctx, c.tokenKey()); err == nil && ok {
		return token, nil
	} else if err != nil {
		c.logger.Warn("wechat token cache read failed", zap.Error(err))
	}

	v, err, _ := c.sf.Do(c.tokenKey(), func() (any, error) {
		if token, ok, err := c.tokens.Get(ctx, c.tokenKey()); err == nil && ok {
			return token, nil
		}
		return c.fetchAccessToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) fetchAccessToken(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("grant_type", "client_credential")
	q.Set("appid", c.appID)
	q.Set("secret", c.secret)

	var resp struct {
		APIError
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/cgi-bin/token?"+q.Encode(), nil, &resp); err != nil {
		return "", err
	}
	if resp.Code != 0 {
		return "", &APIError{Code: resp.Code, Message: resp.Message}
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint returned no access_token", shared.ErrUpstream)
	}

	ttl := time.Duration(resp.ExpiresIn)*time.Second - tokenExpiryMargin
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := c.tokens.Set(ctx, c.tokenKey(), resp.AccessToken, ttl); err != nil {
		c.logger.Warn("wechat token cache write failed", zap.Error(err))
	}
	c.logger.Debug("wechat access token refreshed", zap.Duration("ttl", ttl))
	return resp.AccessToken, nil
}

// InvalidateToken drops the cached access token
func (c *Client) InvalidateToken(ctx context.Context) {
	if err := c.tokens.Delete(ctx, c.tokenKey()); err != nil {
		c.logger.Warn("wechat token cache delete failed", zap.Error(err))
	}
}

type templateValue struct {
	Value string `json:"value"`
}

type subscribeRequest struct {
	ToUser           string                   `json:"touser"`
	TemplateID       string                   `json:"template_id"`
	Page             string                   `json:"page,omitempty"`
	Data             map[string]templateValue `json:"data"`
	MiniProgramState string                   `json:"miniprogram_state,omitempty"`
	Lang             string                   `json:"lang,omitempty"`
}

// SendSubscribeMessage delivers a subscribe message. An invalid or expired
// token is evicted from the cache so the next attempt fetches a fresh one.
func (c *Client) SendSubscribeMessage(ctx context.Context, msg SubscribeMessage) error {
	if msg.ToUser == "" || msg.TemplateID == "" {
		return fmt.Errorf("%w: touser and template_id are required", shared.ErrInvalidInput)
	}
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	req := subscribeRequest{
		ToUser:           msg.ToUser,
		TemplateID:       msg.TemplateID,
		Page:             msg.Page,
		Data:             make(map[string]templateValue, len(msg.Data)),
		MiniProgramState: msg.MiniProgramState,
		Lang:             msg.Lang,
	}
	if req.MiniProgramState == "" {
		req.MiniProgramState = c.miniProgram
	}
	if req.Lang == "" {
		req.Lang = "zh_CN"
	}
	for k, v := range msg.Data {
		req.Data[k] = templateValue{Value: v}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("wechat: marshal subscribe message: %w", err)
	}

	var resp APIError
	path := "/cgi-bin/message/subscribe/send?access_token=" + url.QueryEscape(token)
	if err := c.doRequest(ctx, http.MethodPost, path, body, &resp); err != nil {
		return err
	}
	switch resp.Code {
	case 0:
		return nil
	case errCodeInvalidToken, errCodeTokenExpired:
		c.InvalidateToken(ctx)
	}
	return &APIError{Code: resp.Code, Message: resp.Message}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, out any) error {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("wechat: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: wechat: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("wechat: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: wechat: HTTP %d", shared.ErrUpstream, resp.StatusCode)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: wechat: decode response: %v", shared.ErrUpstream, err)
	}
	return nil
}
