package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/docgate/internal/model"
)

// Envelope はAPIレスポンスの統一フォーマット。
// 成功・失敗を問わずすべてのJSONレスポンスがこの形を取る。
type Envelope struct {
	Success bool `json:"success"`
	Content any  `json:"content"`
	Code    int  `json:"code"`
}

// ErrorContent はエラーレスポンスのcontent部。
// error_messageは人間可読のメッセージ、detailは複合エラーコードを含む文字列。
type ErrorContent struct {
	ErrorMessage string `json:"error_message"`
	Detail       string `json:"detail"`
}

// WriteOK は成功レスポンスを書き込む。
func WriteOK(w http.ResponseWriter, content any) {
	writeEnvelope(w, http.StatusOK, content)
}

// WriteCreated は201 Createdレスポンスを書き込む。
func WriteCreated(w http.ResponseWriter, content any) {
	writeEnvelope(w, http.StatusCreated, content)
}

// WriteError は統一エラーフォーマットでレスポンスを書き込む。
func WriteError(w http.ResponseWriter, statusCode int, errorMessage, detail string) {
	writeEnvelope(w, statusCode, ErrorContent{
		ErrorMessage: errorMessage,
		Detail:       detail,
	})
}

// WriteGatewayError はGatewayErrorをそのステータスコードで書き込む。
// GatewayError以外のエラーは500の一般的なメッセージに落とす。
// 詳細はログのみに記録し、ユーザーには内部情報を晒さない。
func WriteGatewayError(w http.ResponseWriter, err error) {
	if gerr := model.AsGatewayError(err); gerr != nil {
		WriteError(w, gerr.StatusCode, gerr.Message, gerr.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError,
		"internal server error.", "internal server error.")
}

// WriteValidationError はリクエストボディのバリデーション失敗を
// フィールドによらず一律400で書き込む。
func WriteValidationError(w http.ResponseWriter, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	WriteError(w, http.StatusBadRequest,
		"validation error for request ensure you have provided all required fields.",
		detail)
}

func writeEnvelope(w http.ResponseWriter, statusCode int, content any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Envelope{
		Success: statusCode >= 200 && statusCode <= 299,
		Content: content,
		Code:    statusCode,
	})
}
