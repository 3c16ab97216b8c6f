package main

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trade-analytics-lab/internal/config"
	"trade-analytics-lab/internal/storage/memory"
)

func newTestServer() *Server {
	stores := &allStores{
		trades:    memory.NewTradeStore(),
		mappings:  memory.NewMappingStore(),
		logs:      memory.NewIngestLogStore(),
		snapshots: memory.NewSnapshotStore(),
	}
	return newServer(config.Default(), stores, log.New(io.Discard, "", 0))
}

func TestChallengeSimulate_EmptyBodyUsesDefaults(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/challenge/simulate", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestChallengeSimulate_RejectsMalformedBody(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/challenge/simulate",
		strings.NewReader(`{"capital":`))
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("Expected error payload, got %s", rec.Body.String())
	}
}
