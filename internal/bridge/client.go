// Package bridge は内部サービスへのRPCクライアントを提供する。
// トランスポート層の失敗を型付きエラーに変換し、生のエラーを上位に漏らさない。
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/docgate/internal/model"
)

const (
	// authBridgeName はエラーメッセージに含める発生元コンポーネント名。
	authBridgeName = "auth-bridge"
	// authorizePath は認証サービスのトークン解決エンドポイント。
	authorizePath = "/v1/auth/authorize"
	// maxErrorBodySize はエラーレスポンスから読み取る最大バイト数。
	maxErrorBodySize = 1024
)

// Authorizer は不透明トークンをユーザー情報に解決するインターフェース。
// 認証バックエンドが依存する境界として定義する。
type Authorizer interface {
	// Authorize は(トークン, ユーザーID)をユーザー情報に解決する。
	Authorize(ctx context.Context, authToken, userID string) (*AuthorizeResult, error)
}

// AuthorizeResult は認証サービスのトークン解決レスポンスを表す。
// Userフィールドはレスポンスに含まれない場合があるため、呼び出し側で検査すること。
type AuthorizeResult struct {
	User             *model.Account         `json:"user"`
	Token            model.Token            `json:"token"`
	OrganizationRole model.OrganizationRole `json:"organizationRole"`
	ProjectRoles     []model.ProjectRole    `json:"projectRoles"`
}

// Client は認証サービスのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLには認証サービスのベースURL（例: "http://auth-service:8080"）を指定する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// authorizeRequest はトークン解決リクエストのボディ。
type authorizeRequest struct {
	AuthToken string `json:"authToken"`
	UserID    string `json:"userId"`
}

// Authorize は認証サービスを呼び出して不透明トークンを解決する。
// トランスポート失敗はbridge-clientエラー、サービス側が報告した失敗は
// bridge-internalエラーに変換される。
func (c *Client) Authorize(ctx context.Context, authToken, userID string) (*AuthorizeResult, error) {
	body, err := json.Marshal(authorizeRequest{AuthToken: authToken, UserID: userID})
	if err != nil {
		return nil, model.NewBridgeClientError(authBridgeName, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+authorizePath, bytes.NewReader(body))
	if err != nil {
		return nil, model.NewBridgeClientError(authBridgeName, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("authorize transport failure",
			slog.String("error", err.Error()),
		)
		return nil, model.NewBridgeClientError(authBridgeName, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		c.logger.Debug("authorize rejected by service",
			slog.Int("status", resp.StatusCode),
		)
		return nil, model.NewBridgeInternalError(authBridgeName,
			fmt.Sprintf("authorize returned status %d: %s", resp.StatusCode, string(excerpt)))
	}

	var result AuthorizeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, model.NewBridgeInternalError(authBridgeName,
			fmt.Sprintf("failed to decode authorize response: %v", err))
	}

	return &result, nil
}
