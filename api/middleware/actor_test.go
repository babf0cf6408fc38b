package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestActorMiddlewareStoresTrimmedHeader(t *testing.T) {
	var got string
	handler := Actor(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "  tanaka  ")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "tanaka" {
		t.Fatalf("expected actor tanaka, got %q", got)
	}
}

func TestActorMiddlewareTruncatesLongHeader(t *testing.T) {
	var got string
	handler := Actor(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, strings.Repeat("a", maxActorLength+10))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(got) != maxActorLength {
		t.Fatalf("expected actor truncated to %d, got %d", maxActorLength, len(got))
	}
}

func TestActorMiddlewareWithoutHeader(t *testing.T) {
	got := "unset"
	handler := Actor(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != "" {
		t.Fatal("expected no actor in context")
	}
}
