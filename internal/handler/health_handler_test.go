package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/docgate/internal/connector"
)

func TestHealthz(t *testing.T) {
	h := NewHealthHandler(&fakeSource{connectors: map[string]connector.Connector{}})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	// エンベロープではなく素のJSONで返す
	var body map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body["healthy"] {
		t.Errorf("body = %v, want {\"healthy\": true}", body)
	}
}

func TestReadiness(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	index.connected = false

	h := NewHealthHandler(&fakeSource{connectors: map[string]connector.Connector{
		connector.S3ConnectorName:      store,
		connector.ElasticConnectorName: index,
	}})

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))

	// 疎通していないコネクタがあっても200で返る
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var states map[string]readinessEntry
	if err := json.NewDecoder(rec.Body).Decode(&states); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	if len(states) != 2 {
		t.Fatalf("len(states) = %d, want 2", len(states))
	}
	if !states["s3"].IsConnected {
		t.Error("s3 is_connected = false, want true")
	}
	if states["elastic_search"].IsConnected {
		t.Error("elastic_search is_connected = true, want false")
	}
}
