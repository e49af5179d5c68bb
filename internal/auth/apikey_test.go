package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddlewareDisabledWithoutHash(t *testing.T) {
	h := Middleware("")(okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204 (auth disabled)", w.Code)
	}
}

func TestMiddlewareValidKey(t *testing.T) {
	hash, err := HashAPIKey("gp_secret")
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}
	h := Middleware(hash)(okHandler())

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(headerAPIKey, "gp_secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	hash, err := HashAPIKey("gp_secret")
	if err != nil {
		t.Fatalf("HashAPIKey: %v", err)
	}
	h := Middleware(hash)(okHandler())

	t.Run("missing key", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set(headerAPIKey, "nope")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}
