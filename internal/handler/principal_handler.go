package handler

import (
	"net/http"

	"github.com/hitoshi/docgate/internal/middleware"
)

// PrincipalHandler は認証済みプリンシパルの情報を返すHTTPハンドラー。
type PrincipalHandler struct{}

// NewPrincipalHandler はPrincipalHandlerを生成する。
func NewPrincipalHandler() *PrincipalHandler {
	return &PrincipalHandler{}
}

// principalResponse はプリンシパル情報のAPIレスポンス。
type principalResponse struct {
	UserID         int64 `json:"user_id"`
	ProjectID      int64 `json:"project_id"`
	OrganizationID int64 `json:"organization_id"`
}

// Me は現在のリクエストのプリンシパル情報を返す。
// 匿名プリンシパルには401を返す。
// GET /api/v1/me
func (h *PrincipalHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.AuthenticatedFromContext(r.Context())
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}

	userID, err := principal.UserID()
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}
	projectID, err := principal.ProjectID()
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}
	organizationID, err := principal.OrganizationID()
	if err != nil {
		middleware.WriteGatewayError(w, err)
		return
	}

	middleware.WriteOK(w, principalResponse{
		UserID:         userID,
		ProjectID:      projectID,
		OrganizationID: organizationID,
	})
}
