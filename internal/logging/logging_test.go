package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMiddleware(t *testing.T) {
	if err := Init(Config{Level: "error", Format: "json"}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var (
		seenID     string
		seenStatus int
	)
	h := Middleware(func(r *http.Request, status int, _ time.Duration) {
		seenStatus = status
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		if seenID == "" {
			t.Fatal("request id not stored in context")
		}
		if got := rec.Header().Get("X-Request-ID"); got != seenID {
			t.Errorf("X-Request-ID = %q, want %q", got, seenID)
		}
		if seenStatus != http.StatusTeapot {
			t.Errorf("observed status = %d, want %d", seenStatus, http.StatusTeapot)
		}
	})

	t.Run("keeps incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Request-ID", "req-42")
		h.ServeHTTP(httptest.NewRecorder(), req)

		if seenID != "req-42" {
			t.Errorf("request id = %q, want req-42", seenID)
		}
	})
}

func TestWithContext_FallsBackToGlobal(t *testing.T) {
	if WithContext(context.Background()) != L() {
		t.Error("expected global logger without a request logger")
	}
	if GetRequestID(context.Background()) != "" {
		t.Error("expected empty request id")
	}
}

func TestSetLevel(t *testing.T) {
	if err := Init(Config{Level: "info", Format: "json"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	SetLevel("debug")
	if !L().Core().Enabled(-1) {
		t.Error("debug should be enabled")
	}
	SetLevel("bogus")
	if !L().Core().Enabled(-1) {
		t.Error("invalid level must not change the current level")
	}
	SetLevel("info")
}
