package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/cmsearch/internal/config"
	logpkg "github.com/kailas-cloud/cmsearch/internal/logger"
	searchrepo "github.com/kailas-cloud/cmsearch/internal/repository/search"
	chiTransport "github.com/kailas-cloud/cmsearch/internal/transport/chi"
)

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var body chiTransport.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != chiTransport.ErrorResponseCodeInternalError {
		t.Errorf("code = %s", body.Code)
	}
}

func TestWideEventMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	var inner *zap.Logger
	h := chiMiddleware.RequestID(wideEventMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = logpkg.FromContext(r.Context(), nil)
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/indexes/site/search?q=x", http.NoBody)
	req.Header.Set(chiTransport.HeaderCallerUser, "alice")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if inner == nil {
		t.Fatal("request logger not in context")
	}
	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("log lines = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status = %v", fields["status"])
	}
	if fields["caller"] != "alice" || fields["query"] != "q=x" {
		t.Errorf("fields = %v", fields)
	}
}

func TestOpenEngine(t *testing.T) {
	store, layout, err := openEngine(config.EngineConfig{Driver: config.DriverBleve})
	if err != nil {
		t.Fatalf("openEngine: %v", err)
	}
	defer store.Close()

	if _, ok := layout.(searchrepo.FlatLayout); !ok {
		t.Errorf("layout = %T, want FlatLayout", layout)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	if _, _, err := openEngine(config.EngineConfig{Driver: "solr"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
