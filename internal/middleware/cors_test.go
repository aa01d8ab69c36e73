package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"https://console.example.com"})

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{"allowed origin", "GET", "https://console.example.com", false, "https://console.example.com", http.StatusOK},
		{"unknown origin", "GET", "https://evil.example.com", false, "", http.StatusOK},
		{"no origin", "GET", "", false, "", http.StatusOK},
		{"preflight", "OPTIONS", "https://console.example.com", true, "https://console.example.com", http.StatusNoContent},
		{"preflight from unknown origin", "OPTIONS", "https://evil.example.com", true, "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(tt.method, "/v1/attempts", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			w := httptest.NewRecorder()
			CORS(cfg)(next).ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if reached == tt.preflight {
				t.Errorf("next reached = %v for preflight = %v", reached, tt.preflight)
			}
		})
	}
}
