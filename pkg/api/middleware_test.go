package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/stretchr/testify/require"
)

func okHandler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("OK"))
		require.NoError(t, err)
	})
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		allowedOrigins []string
		origin         string
		method         string
		expectedOrigin string
	}{
		{"wildcard echoes origin", []string{"*"}, "https://example.com", http.MethodGet, "https://example.com"},
		{"wildcard without origin", []string{"*"}, "", http.MethodGet, "*"},
		{"listed origin", []string{"https://a.com", "https://b.com"}, "https://b.com", http.MethodGet, "https://b.com"},
		{"unlisted origin", []string{"https://a.com"}, "https://evil.com", http.MethodGet, ""},
		{"preflight", []string{"https://a.com"}, "https://a.com", http.MethodOptions, "https://a.com"},
		{"preflight from unlisted origin", []string{"https://a.com"}, "https://evil.com", http.MethodOptions, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/api/v1/pools", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()

			CORSMiddleware(tt.allowedOrigins)(okHandler(t)).ServeHTTP(w, req)

			require.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.expectedOrigin != "" {
				require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "GET")
				require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
				require.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
			} else {
				require.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
			}

			require.Equal(t, http.StatusOK, w.Code)
			if tt.method == http.MethodOptions {
				require.Empty(t, w.Body.String())
			} else {
				require.Equal(t, "OK", w.Body.String())
			}
		})
	}
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	t.Parallel()

	h := LoggingMiddleware(logger.NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusTeapot, w.Code)
	require.Equal(t, "short and stout", w.Body.String())
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		writes   []int
		expected int
	}{
		{"default", nil, http.StatusOK},
		{"single", []int{http.StatusCreated}, http.StatusCreated},
		{"repeated", []int{http.StatusNotFound, http.StatusInternalServerError}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
			for _, code := range tt.writes {
				rw.WriteHeader(code)
			}

			require.Equal(t, tt.expected, rw.statusCode)
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		body    string
	}{
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("fine"))
			},
			status: http.StatusOK,
			body:   "fine",
		},
		{
			name:    "string panic",
			handler: func(w http.ResponseWriter, r *http.Request) { panic("boom") },
			status:  http.StatusInternalServerError,
			body:    "Internal Server Error\n",
		},
		{
			name: "nil map write",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var m map[string]int
				m["x"] = 1
			},
			status: http.StatusInternalServerError,
			body:   "Internal Server Error\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			RecoveryMiddleware(logger.NewNopLogger())(tt.handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			require.Equal(t, tt.status, w.Code)
			require.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestMiddlewareChain_RecoversBehindCORS(t *testing.T) {
	t.Parallel()

	log := logger.NewNopLogger()

	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("late") })
	h = RecoveryMiddleware(log)(h)
	h = LoggingMiddleware(log)(h)
	h = CORSMiddleware([]string{"https://example.com"})(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
