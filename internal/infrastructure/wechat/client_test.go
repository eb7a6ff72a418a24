package wechat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/cache"
	"github.com/freightport/backend/internal/infrastructure/config"
)

type fakeWechat struct {
	tokenCalls atomic.Int32
	sendCalls  atomic.Int32
	sendCode   atomic.Int32
	lastSend   atomic.Value
}

func (f *fakeWechat) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sns/jscode2session", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "wx-app", q.Get("appid"))
		assert.Equal(t, "authorization_code", q.Get("grant_type"))
		switch q.Get("js_code") {
		case "good-code":
			_, _ = w.Write([]byte(`{"openid":"o-123","session_key":"sk","unionid":"u-1"}`))
		default:
			_, _ = w.Write([]byte(`{"errcode":40029,"errmsg":"invalid code"}`))
		}
	})
	mux.HandleFunc("/cgi-bin/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":7200}`))
	})
	mux.HandleFunc("/cgi-bin/message/subscribe/send", func(w http.ResponseWriter, r *http.Request) {
		f.sendCalls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "tok-1", r.URL.Query().Get("access_token"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.lastSend.Store(body)
		code := f.sendCode.Load()
		_, _ = w.Write([]byte(`{"errcode":` + itoa(int(code)) + `,"errmsg":"x"}`))
	})
	return mux
}

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func newTestClient(t *testing.T, f *fakeWechat, tokens cache.ValueCache) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	c, err := NewClient(config.WechatConfig{
		AppID:       "wx-app",
		AppSecret:   "secret",
		BaseURL:     srv.URL,
		MiniProgram: "trial",
		Timeout:     time.Second,
	}, tokens)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(config.WechatConfig{AppSecret: "s"}, nil)
	assert.ErrorIs(t, err, ErrMissingAppID)

	_, err = NewClient(config.WechatConfig{AppID: "a"}, nil)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestClient_Code2Session(t *testing.T) {
	c := newTestClient(t, &fakeWechat{}, nil)

	t.Run("valid code", func(t *testing.T) {
		s, err := c.Code2Session(context.Background(), "good-code")
		require.NoError(t, err)
		assert.Equal(t, "o-123", s.OpenID)
		assert.Equal(t, "u-1", s.UnionID)
	})

	t.Run("invalid code", func(t *testing.T) {
		_, err := c.Code2Session(context.Background(), "bad")
		require.Error(t, err)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 40029, apiErr.Code)
		assert.ErrorIs(t, err, shared.ErrUpstream)
	})

	t.Run("empty code", func(t *testing.T) {
		_, err := c.Code2Session(context.Background(), " ")
		assert.ErrorIs(t, err, ErrEmptyCode)
	})
}

func TestClient_AccessToken_CachedAndCoalesced(t *testing.T) {
	f := &fakeWechat{}
	tokens := cache.NewInMemoryValueCache()
	c := newTestClient(t, f, tokens)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.AccessToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok-1", tok)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), f.tokenCalls.Load())

	_, err := c.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenCalls.Load())

	cached, ok, err := tokens.Get(context.Background(), "wechat:access_token:wx-app")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", cached)
}

func TestClient_SendSubscribeMessage(t *testing.T) {
	f := &fakeWechat{}
	c := newTestClient(t, f, nil)

	err := c.SendSubscribeMessage(context.Background(), SubscribeMessage{
		ToUser:     "o-123",
		TemplateID: "tpl",
		Page:       "pages/order/detail?id=1",
		Data:       map[string]string{"thing1": "hello"},
	})
	require.NoError(t, err)

	body := f.lastSend.Load().(map[string]any)
	assert.Equal(t, "o-123", body["touser"])
	assert.Equal(t, "trial", body["miniprogram_state"])
	assert.Equal(t, "zh_CN", body["lang"])
	data := body["data"].(map[string]any)
	assert.Equal(t, map[string]any{"value": "hello"}, data["thing1"])
}

func TestClient_SendSubscribeMessage_InvalidTokenEvicted(t *testing.T) {
	f := &fakeWechat{}
	tokens := cache.NewInMemoryValueCache()
	c := newTestClient(t, f, tokens)
	f.sendCode.Store(errCodeTokenExpired)

	err := c.SendSubscribeMessage(context.Background(), SubscribeMessage{ToUser: "o", TemplateID: "tpl"})
	require.Error(t, err)
	assert.Equal(t, int32(1), f.sendCalls.Load())

	_, ok, _ := tokens.Get(context.Background(), "wechat:access_token:wx-app")
	assert.False(t, ok)
}

func TestClient_SendSubscribeMessage_Validation(t *testing.T) {
	c := newTestClient(t, &fakeWechat{}, nil)
	err := c.SendSubscribeMessage(context.Background(), SubscribeMessage{TemplateID: "tpl"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestClient_UpstreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(config.WechatConfig{AppID: "a", AppSecret: "s", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = c.AccessToken(context.Background())
	assert.ErrorIs(t, err, shared.ErrUpstream)
}
