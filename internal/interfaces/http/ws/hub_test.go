package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/auth"
	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/freightport/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const wsPath = "/api/v1/ws/notifications"

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	hub    *Hub
	jwt    *auth.JWTService
	server *httptest.Server
}

func newHarness(t *testing.T, origins ...string) *harness {
	t.Helper()
	jwt := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "test-issuer",
	})
	hub := NewHub(origins, zaptest.NewLogger(t))

	r := gin.New()
	r.Use(middleware.JWTAuthMiddleware(jwt))
	r.GET(wsPath, hub.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &harness{hub: hub, jwt: jwt, server: srv}
}

func (h *harness) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	pair, err := h.jwt.GenerateTokenPair(auth.Subject{UserID: userID, Username: "shipper", Role: shared.RoleCustomer})
	require.NoError(t, err)
	return pair.AccessToken
}

func (h *harness) dial(t *testing.T, token string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + wsPath + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func TestHub_PushReachesEveryTab(t *testing.T) {
	h := newHarness(t)
	userID := uuid.New()
	token := h.token(t, userID)

	first, _, err := h.dial(t, token, nil)
	require.NoError(t, err)
	second, _, err := h.dial(t, token, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.hub.Connections(userID) == 2 }, time.Second, 10*time.Millisecond)

	h.hub.Push(userID, map[string]string{"kind": "BILL_ISSUED", "title": "Bill FB-2026-00001 issued"})
	h.hub.Push(uuid.New(), map[string]string{"kind": "ORDER_STATUS"})

	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got map[string]string
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "BILL_ISSUED", got["kind"])
	}

	require.NoError(t, first.Close())
	assert.Eventually(t, func() bool { return h.hub.Connections(userID) == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_RequiresToken(t *testing.T) {
	h := newHarness(t)

	_, resp, err := h.dial(t, "", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = h.dial(t, "garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_CheckOrigin(t *testing.T) {
	h := newHarness(t, "https://portal.example")
	token := h.token(t, uuid.New())

	_, resp, err := h.dial(t, token, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, _, err = h.dial(t, token, http.Header{"Origin": {"https://portal.example"}})
	assert.NoError(t, err)
}

func TestHub_CloseDisconnects(t *testing.T) {
	h := newHarness(t)
	userID := uuid.New()
	conn, _, err := h.dial(t, h.token(t, userID), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.hub.Connections(userID) == 1 }, time.Second, 10*time.Millisecond)

	h.hub.Close()
	assert.Zero(t, h.hub.Connections(userID))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// pushing after close is a no-op
	h.hub.Push(userID, "late")
}
