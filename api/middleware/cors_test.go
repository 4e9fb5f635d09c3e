package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/payments", nil)
	req.Header.Set("Origin", "https://app.dentaldesk.iq")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()

	CORS([]string{"https://app.dentaldesk.iq"})(okHandler(nil)).ServeHTTP(resp, req)

	require.Equal(t, "https://app.dentaldesk.iq", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp := httptest.NewRecorder()

	CORS([]string{"https://app.dentaldesk.iq"})(okHandler(nil)).ServeHTTP(resp, req)

	require.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}
