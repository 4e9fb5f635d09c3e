package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
)

func TestRequestIDReusesWellFormedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-12345678")
	resp := httptest.NewRecorder()

	RequestID(nil)(okHandler(nil)).ServeHTTP(resp, req)

	require.Equal(t, "req-12345678", resp.Header().Get(requestIDHeader))
}

func TestRequestIDReplacesMalformedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "bad id\nwith newline")
	resp := httptest.NewRecorder()

	RequestID(nil)(okHandler(nil)).ServeHTTP(resp, req)

	_, err := uuid.Parse(resp.Header().Get(requestIDHeader))
	require.NoError(t, err)
}

func TestRecovererWritesInternalError(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil clinic")
	})
	resp := httptest.NewRecorder()

	Recoverer(logg)(panicky).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/clinics/bootstrap", nil))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Contains(t, resp.Body.String(), "INTERNAL_ERROR")
	require.Contains(t, buf.String(), `"panic":"nil clinic"`)
	require.Contains(t, buf.String(), "panic_stack")
}

func TestRecovererRethrowsAbort(t *testing.T) {
	abort := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		Recoverer(nil)(abort).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
