package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/docgate/internal/connector"
)

// ConnectorLister は疎通確認の対象となるコネクタの列挙に必要なインターフェース。
// connector.Registryの部分集合として定義する。
type ConnectorLister interface {
	All() []connector.Connector
}

// HealthHandler は死活監視エンドポイントのHTTPハンドラー。
type HealthHandler struct {
	connectors ConnectorLister
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(connectors ConnectorLister) *HealthHandler {
	return &HealthHandler{connectors: connectors}
}

// Healthz はプロセスの生存確認に応答する。
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"healthy": true})
}

// readinessEntry はコネクタごとの疎通状態。
type readinessEntry struct {
	IsConnected bool `json:"is_connected"`
}

// Readiness は登録済みコネクタごとの疎通状態を返す。
// 疎通していないコネクタがあってもレスポンス自体は200で返す。
// GET /readiness
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessProbeTimeout)
	defer cancel()

	states := make(map[string]readinessEntry)
	for _, c := range h.connectors.All() {
		states[c.Name()] = readinessEntry{IsConnected: c.IsConnected(ctx)}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(states)
}
