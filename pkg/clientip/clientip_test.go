package clientip_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/paygate/pkg/clientip"
)

func TestFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trusted    []string
		want       string
	}{
		{"remote addr only", nil, "203.0.113.7:5123", clientip.DefaultHeaders, "203.0.113.7"},
		{"remote addr without port", nil, "203.0.113.7", clientip.DefaultHeaders, "203.0.113.7"},
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Forwarded-For": "198.51.100.2"}, "10.0.0.1:80", clientip.DefaultHeaders, "198.51.100.1"},
		{"forwarded list first valid", map[string]string{"X-Forwarded-For": "garbage, 198.51.100.9, 10.0.0.2"}, "10.0.0.1:80", clientip.DefaultHeaders, "198.51.100.9"},
		{"ipv6 normalised", map[string]string{"X-Real-IP": "2001:DB8::1"}, "10.0.0.1:80", clientip.DefaultHeaders, "2001:db8::1"},
		{"untrusted header ignored", map[string]string{"X-Forwarded-For": "198.51.100.2"}, "10.0.0.1:80", nil, "10.0.0.1"},
		{"invalid everywhere", map[string]string{"X-Real-IP": "nope"}, "also-nope", clientip.DefaultHeaders, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.FromRequest(req, tt.trusted...))
		})
	}
}

func TestMiddlewareAndExtractor(t *testing.T) {
	t.Parallel()

	var seen string
	h := clientip.Middleware(clientip.DefaultHeaders...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = clientip.FromContext(r.Context())
		attr, ok := clientip.LoggerExtractor()(r.Context())
		require.True(t, ok)
		assert.Equal(t, "client_ip", attr.Key)
	}))

	req := httptest.NewRequest(http.MethodGet, "/billing/plans", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.4")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "198.51.100.4", seen)

	_, ok := clientip.LoggerExtractor()(context.Background())
	assert.False(t, ok)
}
