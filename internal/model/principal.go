// Package model はドメインモデルとエラータクソノミを定義する。
package model

import "strconv"

// Account は認証サービスが解決したアカウント情報を表す。
type Account struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Token は認証サービスが発行したトークン情報を表す。
type Token struct {
	ID        int64  `json:"id"`
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
}

// OrganizationRole はユーザーの組織内ロールを表す。
type OrganizationRole struct {
	ID               int64  `json:"id"`
	OrganizationID   int64  `json:"organizationId"`
	Role             string `json:"role"`
	OrganizationName string `json:"organizationName"`
}

// ProjectRole はユーザーのプロジェクト内ロールを表す。
type ProjectRole struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"projectId"`
	Role        string `json:"role"`
	ProjectName string `json:"projectName"`
}

// User はリクエストに付与されるプリンシパルを表す。
// リクエストごとにちょうど1つのバリアントが付与される。
// バリアントによって取得できない属性は、panicせずGatewayErrorを返す。
type User interface {
	// UserID はユーザーIDを返す。
	UserID() (int64, error)
	// ProjectID は現在選択中のプロジェクトIDを返す。未選択の場合は0を返す。
	ProjectID() (int64, error)
	// OrganizationID は組織IDを返す。
	OrganizationID() (int64, error)
}

// AuthenticatedUser は外部認証サービスのトークン解決で認証されたユーザー。
type AuthenticatedUser struct {
	Account          Account          `json:"user"`
	Token            Token            `json:"token"`
	OrganizationRole OrganizationRole `json:"organizationRole"`
	ProjectRoles     []ProjectRole    `json:"projectRoles"`
	CurrentProject   *ProjectRole     `json:"-"`
}

// SelectProject はProjectRolesからprojectIDに一致するプロジェクトを選択する。
// 一致するものが見つかった場合はCurrentProjectに設定して返す。
// 見つからない場合はCurrentProjectを変更せずnilを返す（エラーにしない）。
// 数値に変換できないprojectIDはどのプロジェクトにも一致しない。
func (u *AuthenticatedUser) SelectProject(projectID string) *ProjectRole {
	id, err := strconv.ParseInt(projectID, 10, 64)
	if err != nil {
		return nil
	}
	for i := range u.ProjectRoles {
		if u.ProjectRoles[i].ProjectID == id {
			u.CurrentProject = &u.ProjectRoles[i]
			return u.CurrentProject
		}
	}
	return nil
}

// UserID はアカウントのIDを返す。
func (u *AuthenticatedUser) UserID() (int64, error) {
	return u.Account.ID, nil
}

// ProjectID は選択中プロジェクトのIDを返す。未選択の場合は0を返す。
func (u *AuthenticatedUser) ProjectID() (int64, error) {
	if u.CurrentProject == nil {
		return 0, nil
	}
	return u.CurrentProject.ProjectID, nil
}

// OrganizationID は組織ロールの組織IDを返す。
func (u *AuthenticatedUser) OrganizationID() (int64, error) {
	return u.OrganizationRole.OrganizationID, nil
}

// InternalAuthenticatedUser はJWTクレームから直接構築されるユーザー。
// サービス間呼び出しなど、クレームが既に信頼されている経路で使用する。
type InternalAuthenticatedUser struct {
	UserIDClaim         int64 `json:"userId"`
	ProjectIDClaim      int64 `json:"projectId"`
	OrganizationIDClaim int64 `json:"organizationId"`
}

// UserID はuserIdクレームを返す。
func (u *InternalAuthenticatedUser) UserID() (int64, error) {
	return u.UserIDClaim, nil
}

// ProjectID はprojectIdクレームを返す。
func (u *InternalAuthenticatedUser) ProjectID() (int64, error) {
	return u.ProjectIDClaim, nil
}

// OrganizationID はorganizationIdクレームを返す。
func (u *InternalAuthenticatedUser) OrganizationID() (int64, error) {
	return u.OrganizationIDClaim, nil
}

// AnonymousUser は認証されなかったリクエストに付与されるプリンシパル。
// 認証が非strict設定で失敗した場合にのみ使用する。すべての属性取得は失敗する。
type AnonymousUser struct{}

// UserID は常にinvalid-authorization-tokenエラーを返す。
func (u AnonymousUser) UserID() (int64, error) {
	return 0, NewInvalidAuthorizationTokenError("anonymous user doesn't have any attribute.")
}

// ProjectID は常にinvalid-authorization-tokenエラーを返す。
func (u AnonymousUser) ProjectID() (int64, error) {
	return 0, NewInvalidAuthorizationTokenError("anonymous user doesn't have any attribute.")
}

// OrganizationID は常にinvalid-authorization-tokenエラーを返す。
func (u AnonymousUser) OrganizationID() (int64, error) {
	return 0, NewInvalidAuthorizationTokenError("anonymous user doesn't have any attribute.")
}
