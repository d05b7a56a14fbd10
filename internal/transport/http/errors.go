package httptransport

import (
	"errors"
	"net/http"

	"mailgallery/backend/internal/auth"
	"mailgallery/backend/internal/service"
	"mailgallery/backend/internal/storage"
)

// 通用错误消息
const (
	// 认证相关
	MsgMissingCredentials = "Missing email or password"
	MsgInvalidCredentials = "Incorrect email or password"
	MsgInvalidRequest     = "Invalid request body"
	MsgNoLoggedInUser     = "No logged-in user"
	MsgMissingCode        = "No code received"
	MsgInvalidState       = "Invalid OAuth state"
	MsgOAuthFailed        = "OAuth error"

	// 导入相关
	MsgMissingUserEmail = "Missing user_email"
	MsgUserNotFound     = "User not found"
	MsgNoToken          = "No Gmail tokens found"
	MsgRefreshFailed    = "Failed to refresh access token"
	MsgImportFailed     = "Server error while importing emails"

	// 模板相关
	MsgInvalidTemplateID = "Invalid template id"
	MsgTemplateNotFound  = "Email not found"
	MsgTemplatesFailed   = "Failed to fetch templates"
	MsgFiltersFailed     = "Failed to load filters"
	MsgTemplateFailed    = "Failed to fetch email"

	// 服务器错误
	MsgInternalError = "Server error"
)

// errorMapping 业务错误 -> 状态码和消息
type errorMapping struct {
	status int
	msg    string
}

var errorMappings = []struct {
	err error
	errorMapping
}{
	{auth.ErrMissingCredentials, errorMapping{http.StatusBadRequest, MsgMissingCredentials}},
	{auth.ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, MsgInvalidCredentials}},
	{service.ErrMissingUserEmail, errorMapping{http.StatusBadRequest, MsgMissingUserEmail}},
	{service.ErrNoToken, errorMapping{http.StatusBadRequest, MsgNoToken}},
	{service.ErrRefreshFailed, errorMapping{http.StatusBadRequest, MsgRefreshFailed}},
	{storage.ErrUserNotFound, errorMapping{http.StatusNotFound, MsgUserNotFound}},
	{storage.ErrEmailNotFound, errorMapping{http.StatusNotFound, MsgTemplateNotFound}},
}

// mapError 返回业务错误对应的状态码和消息，未知错误返回 500 和 fallback
func mapError(err error, fallback string) (int, string, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.msg, true
		}
	}
	return http.StatusInternalServerError, fallback, false
}
