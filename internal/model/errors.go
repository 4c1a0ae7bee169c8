package model

import (
	"errors"
	"fmt"
)

// エラーコードの既定のプレフィックスとサービスコード。
// サービスコードはサービス横断でエラーコードを一意にするための識別子。
const (
	DefaultErrorPrefix = "DOCGATE"
	DefaultServiceCode = "GW_API"
)

// 固定の数値エラーコード。クライアント側のエラー判別に使用されるため、
// 値を変更してはならない。
const (
	CodeBridgeClientFailure       = 1001
	CodeBridgeInternalFailure     = 1002
	CodeConnectorClientFailure    = 2001
	CodeConnectorIllegalName      = 2002
	CodeConnectorNotThere         = 2003
	CodeConnectorInternalFailure  = 2004
	CodeMissingAuthorizationKey   = 3001
	CodeInvalidAuthorizationToken = 3002
)

// GatewayError はゲートウェイ全体で使用する型付きエラー。
// HTTPステータスコードと、メッセージとは独立した安定的な数値エラーコードを持つ。
type GatewayError struct {
	StatusCode    int    // HTTPステータスコード
	Message       string // 人間可読なメッセージ
	Numeric       int    // 固定の数値エラーコード
	Prefix        string // エラープレフィックス
	ServiceCode   string // サービスコード
	ConnectorName string // 発生元コンポーネント名（コネクタ・ブリッジ系のみ）
}

// Code はクライアント向けの複合エラーコード（PREFIX_SERVICE_NUM）を返す。
func (e *GatewayError) Code() string {
	return fmt.Sprintf("%s_%s_%d", e.Prefix, e.ServiceCode, e.Numeric)
}

// Error はerrorインターフェースを実装する。
func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s - %s", e.Code(), e.Message)
}

// AsGatewayError はエラーチェーンから*GatewayErrorを取り出す。
// 含まれていない場合はnilを返す。
func AsGatewayError(err error) *GatewayError {
	if err == nil {
		return nil
	}
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr
	}
	return nil
}

func newGatewayError(statusCode, numeric int, message string) *GatewayError {
	return &GatewayError{
		StatusCode:  statusCode,
		Message:     message,
		Numeric:     numeric,
		Prefix:      DefaultErrorPrefix,
		ServiceCode: DefaultServiceCode,
	}
}

// NewMissingAuthorizationKeyError は必須の認証ヘッダーが存在しない場合のエラーを生成する。
// authTypeには認証方式名（"JWT"、"token-auth"等）を指定する。
func NewMissingAuthorizationKeyError(authType string) *GatewayError {
	return newGatewayError(400, CodeMissingAuthorizationKey,
		fmt.Sprintf("%s: Missing Authorization Key", authType))
}

// NewInvalidAuthorizationTokenError はトークンの検証・解決に失敗した場合のエラーを生成する。
func NewInvalidAuthorizationTokenError(message string) *GatewayError {
	return newGatewayError(401, CodeInvalidAuthorizationToken, message)
}

func newConnectorError(numeric int, connectorName, message string) *GatewayError {
	gerr := newGatewayError(422, numeric, fmt.Sprintf("%s: %s", connectorName, message))
	gerr.ConnectorName = connectorName
	return gerr
}

// NewConnectorClientFailureError はデータストアやクラウドAPIへの接続失敗エラーを生成する。
// SDKの生の例外型を境界の外に漏らさないためのラッパーとして使用する。
func NewConnectorClientFailureError(connectorName, message string) *GatewayError {
	return newConnectorError(CodeConnectorClientFailure, connectorName, message)
}

// NewConnectorIllegalNameError は不正なコネクタ名が要求された場合のエラーを生成する。
func NewConnectorIllegalNameError(connectorName, message string) *GatewayError {
	return newConnectorError(CodeConnectorIllegalName, connectorName, message)
}

// NewConnectorNotThereError は未登録のコネクタ名が要求された場合のエラーを生成する。
func NewConnectorNotThereError(connectorName, message string) *GatewayError {
	return newConnectorError(CodeConnectorNotThere, connectorName, message)
}

// NewConnectorInternalFailureError は確立済み接続での操作失敗エラーを生成する。
func NewConnectorInternalFailureError(connectorName, message string) *GatewayError {
	return newConnectorError(CodeConnectorInternalFailure, connectorName, message)
}

func newBridgeError(numeric int, bridgeName, message string) *GatewayError {
	gerr := newGatewayError(400, numeric, fmt.Sprintf("%s: %s", bridgeName, message))
	gerr.ConnectorName = bridgeName
	return gerr
}

// NewBridgeClientError は内部サービスへのRPCのトランスポート失敗エラーを生成する。
func NewBridgeClientError(bridgeName, message string) *GatewayError {
	return newBridgeError(CodeBridgeClientFailure, bridgeName, message)
}

// NewBridgeInternalError は内部サービス側が報告した失敗のエラーを生成する。
func NewBridgeInternalError(bridgeName, message string) *GatewayError {
	return newBridgeError(CodeBridgeInternalFailure, bridgeName, message)
}
