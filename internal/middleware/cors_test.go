package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := CORS([]string{"http://web.test"})(next)

	t.Run("AllowedOrigin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/classes", nil)
		req.Header.Set("Origin", "http://web.test")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Equal(t, "http://web.test", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("UnknownOrigin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/classes", nil)
		req.Header.Set("Origin", "http://evil.test")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/classes", nil)
		req.Header.Set("Origin", "http://web.test")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	})
}
