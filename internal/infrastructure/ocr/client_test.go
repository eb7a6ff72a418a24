package ocr

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/config"
)

const licenseResponse = `{
  "log_id": 1,
  "words_result": {
    "单位名称": {"words": "上海远航国际货运代理有限公司"},
    "社会信用代码": {"words": "91310115MA1K4XXXXX"},
    "法人": {"words": "张三"},
    "地址": {"words": "上海市浦东新区港城路1号"},
    "组成形式": {"words": "无"}
  }
}`

const blResponse = `{
  "words_result": [
    {"words": "BILL OF LADING"},
    {"words": "B/L NO: COSU6123456780"},
    {"words": "Vessel/Voyage: EVER GIVEN 0123E"},
    {"words": "Port of Loading: SHANGHAI"},
    {"words": "Port of Discharge: ROTTERDAM"},
    {"words": "CSQU3054383 40HC  MSKU1234565 20GP"},
    {"words": "CSQU3054383"}
  ]
}`

type fakeProvider struct {
	tokenCalls atomic.Int32
	lastImage  atomic.Value
}

func newFakeProvider(t *testing.T, f *fakeProvider) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/2.0/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "key", r.URL.Query().Get("client_id"))
		_, _ = w.Write([]byte(`{"access_token":"bearer-1","expires_in":2592000}`))
	})
	mux.HandleFunc("/rest/2.0/ocr/v1/business_license", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bearer-1", r.URL.Query().Get("access_token"))
		assert.NoError(t, r.ParseForm())
		f.lastImage.Store(r.PostForm.Get("image"))
		_, _ = w.Write([]byte(licenseResponse))
	})
	mux.HandleFunc("/rest/2.0/ocr/v1/accurate_basic", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(blResponse))
	})
	mux.HandleFunc("/rest/2.0/ocr/v1/idcard", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error_code":216201,"error_msg":"image format error"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, f *fakeProvider) *Client {
	srv := newFakeProvider(t, f)
	return NewClient(config.OCRConfig{
		Enabled:   true,
		BaseURL:   srv.URL,
		APIKey:    "key",
		APISecret: "secret",
		Timeout:   time.Second,
	}, nil, nil)
}

func TestClient_RecognizeBusinessLicense(t *testing.T) {
	f := &fakeProvider{}
	c := newTestClient(t, f)
	image := []byte{0x89, 'P', 'N', 'G'}

	res, err := c.Recognize(context.Background(), DocumentBusinessLicense, image)
	require.NoError(t, err)

	assert.Equal(t, DocumentBusinessLicense, res.DocumentType)
	assert.Equal(t, "上海远航国际货运代理有限公司", res.Fields["company_name"])
	assert.Equal(t, "91310115MA1K4XXXXX", res.Fields["license_no"])
	assert.Equal(t, "张三", res.Fields["legal_person"])
	assert.Equal(t, "上海市浦东新区港城路1号", res.Fields["address"])
	assert.NotContains(t, res.Fields, "组成形式")
	assert.Len(t, res.Words, 4)
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), f.lastImage.Load())

	_, err = c.Recognize(context.Background(), DocumentBusinessLicense, image)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenCalls.Load(), "token should be cached")
}

func TestClient_RecognizeBillOfLading(t *testing.T) {
	c := newTestClient(t, &fakeProvider{})

	res, err := c.Recognize(context.Background(), DocumentBillOfLading, []byte("img"))
	require.NoError(t, err)

	assert.Equal(t, "COSU6123456780", res.Fields["bl_no"])
	assert.Equal(t, "EVER GIVEN 0123E", res.Fields["vessel"])
	assert.Equal(t, "SHANGHAI", res.Fields["port_of_loading"])
	assert.Equal(t, "ROTTERDAM", res.Fields["port_of_discharge"])
	assert.Equal(t, "CSQU3054383,MSKU1234565", res.Fields["container_numbers"])
	assert.Len(t, res.Words, 7)
}

func TestClient_ProviderError(t *testing.T) {
	c := newTestClient(t, &fakeProvider{})

	_, err := c.Recognize(context.Background(), DocumentIDCard, []byte("img"))
	assert.ErrorIs(t, err, shared.ErrUpstream)
}

func TestClient_Validation(t *testing.T) {
	c := newTestClient(t, &fakeProvider{})

	_, err := c.Recognize(context.Background(), DocumentType("PASSPORT"), []byte("img"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = c.Recognize(context.Background(), DocumentBusinessLicense, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = c.Recognize(context.Background(), DocumentBusinessLicense, make([]byte, maxImageBytes+1))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}
