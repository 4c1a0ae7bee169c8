package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/docgate/internal/connector"
	"github.com/hitoshi/docgate/internal/middleware"
)

const (
	documentIndexName     = "documents"
	searchCacheTTL        = 60 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// ConnectorResolver はコネクタの名前解決に必要なインターフェース。
// connector.Registryの部分集合として定義する。
type ConnectorResolver interface {
	Resolve(name string) (connector.Connector, error)
}

// objectStore はドキュメント本体の格納に必要な能力。
// connector.S3Connectorが実装する。
type objectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}

// documentIndex はメタデータの索引付けと検索に必要な能力。
// connector.ElasticConnectorが実装する。
type documentIndex interface {
	Index(ctx context.Context, index, docID string, body io.Reader) error
	GetDocument(ctx context.Context, index, docID string) ([]byte, bool, error)
	Search(ctx context.Context, index string, query io.Reader) ([]byte, error)
}

// searchCache は検索結果のリードスルーキャッシュに必要な能力。
// connector.RedisConnectorが実装する。
type searchCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// DocumentHandler はドキュメント管理のHTTPハンドラー。
// コネクタはリクエストごとにレジストリから名前解決する。
type DocumentHandler struct {
	connectors ConnectorResolver
	logger     *slog.Logger
}

// NewDocumentHandler はDocumentHandlerを生成する。
func NewDocumentHandler(connectors ConnectorResolver, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		connectors: connectors,
		logger:     logger,
	}
}

// createDocumentRequest はドキュメント作成リクエストのボディ。
type createDocumentRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// documentMetadata はElasticsearchに索引付けされるメタデータ。
type documentMetadata struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Tags       []string `json:"tags"`
	ContentKey string   `json:"content_key"`
	CreatedAt  string   `json:"created_at"`
}

// createDocumentResponse はドキュメント作成のAPIレスポンス。
type createDocumentResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CreateDocument はドキュメントを登録する。
// 本体はS3に格納し、メタデータをElasticsearchに索引付けする。
// POST /api/v1/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteValidationError(w, err)
		return
	}
	if req.Title == "" || req.Content == "" {
		middleware.WriteValidationError(w, fmt.Errorf("title and content are required"))
		return
	}

	store, err := h.objectStore()
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}
	index, err := h.documentIndex()
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}

	id := uuid.NewString()
	contentKey := "documents/" + id

	if err := store.PutObject(r.Context(), contentKey, strings.NewReader(req.Content), "text/plain"); err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}

	meta := documentMetadata{
		ID:         id,
		Title:      req.Title,
		Tags:       req.Tags,
		ContentKey: contentKey,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(meta)
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}
	if err := index.Index(r.Context(), documentIndexName, id, bytes.NewReader(body)); err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}

	h.logger.Info("document created",
		slog.String("document_id", id),
		slog.String("content_key", contentKey),
	)

	middleware.WriteCreated(w, createDocumentResponse{ID: id, Title: req.Title})
}

// GetDocument はドキュメントのメタデータを取得する。
// GET /api/v1/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	index, err := h.documentIndex()
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}

	raw, found, err := index.GetDocument(r.Context(), documentIndexName, id)
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}
	if !found {
		middleware.WriteError(w, http.StatusNotFound, "document not found.", id)
		return
	}

	middleware.WriteOK(w, json.RawMessage(raw))
}

// GetDocumentContent はドキュメント本体をS3から取得して返す。
// GET /api/v1/documents/{id}/content
func (h *DocumentHandler) GetDocumentContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	store, err := h.objectStore()
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}

	body, err := store.GetObject(r.Context(), "documents/"+id)
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Error("failed to stream document content",
			slog.String("document_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// SearchDocuments はメタデータを全文検索する。
// 同一クエリの結果はRedisに短時間キャッシュする。キャッシュの失敗は
// 検索自体を妨げない。
// GET /api/v1/documents:search?q=...
func (h *DocumentHandler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		middleware.WriteValidationError(w, fmt.Errorf("query parameter q is required"))
		return
	}

	cache := h.searchCache()
	cacheKey := "search:" + q

	if cache != nil {
		if cached, found, err := cache.Get(r.Context(), cacheKey); err != nil {
			h.logger.Warn("search cache lookup failed", slog.String("error", err.Error()))
		} else if found {
			middleware.WriteOK(w, json.RawMessage(cached))
			return
		}
	}

	index, err := h.documentIndex()
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}

	query, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title", "tags"},
			},
		},
	})
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}

	raw, err := index.Search(r.Context(), documentIndexName, bytes.NewReader(query))
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}

	if cache != nil {
		if err := cache.Set(r.Context(), cacheKey, string(raw), searchCacheTTL); err != nil {
			h.logger.Warn("search cache store failed", slog.String("error", err.Error()))
		}
	}

	middleware.WriteOK(w, json.RawMessage(raw))
}

// objectStore はS3コネクタを名前解決してobjectStore能力に絞り込む。
func (h *DocumentHandler) objectStore() (objectStore, error) {
	c, err := h.connectors.Resolve(connector.S3ConnectorName)
	if err != nil {
		return nil, err
	}
	store, ok := c.(objectStore)
	if !ok {
		return nil, fmt.Errorf("connector %s does not support object storage", c.Name())
	}
	return store, nil
}

// documentIndex はElasticsearchコネクタを名前解決してdocumentIndex能力に絞り込む。
func (h *DocumentHandler) documentIndex() (documentIndex, error) {
	c, err := h.connectors.Resolve(connector.ElasticConnectorName)
	if err != nil {
		return nil, err
	}
	index, ok := c.(documentIndex)
	if !ok {
		return nil, fmt.Errorf("connector %s does not support document indexing", c.Name())
	}
	return index, nil
}

// searchCache はRedisコネクタを名前解決する。未登録の場合はnilを返し、
// キャッシュなしで動作する。
func (h *DocumentHandler) searchCache() searchCache {
	c, err := h.connectors.Resolve(connector.RedisConnectorName)
	if err != nil {
		return nil
	}
	cache, ok := c.(searchCache)
	if !ok {
		return nil
	}
	return cache
}
