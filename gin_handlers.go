package tripchat_sdk

/* @title           TripChat SDK API
@version         1.0
@description     行程聊天与未读通知 SDK API documentation
@host            localhost:6789
@BasePath        /api/v1
@securityDefinitions.apikey BearerAuth
@in header
@name Authorization
*/

/* This file is now split into:
- handler_user.go
- handler_conversation.go
- handler_message.go
- handler_notification.go
- handler_review.go
*/

import (
	"net/http"

	"github.com/Josef-miguel/tripchat-sdk/middleware"
	"github.com/Josef-miguel/tripchat-sdk/response"
	"github.com/gin-gonic/gin"
)

// currentUID 从 gin.Context 取当前登录用户（GinAuthMiddleware 写入）。
// 没有时直接写 401 并返回 false，handler 直接 return 即可。
func currentUID(ctx *gin.Context) (string, bool) {
	v, exists := ctx.Get(middleware.ContextUIDKey)
	if !exists {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "uid not found in context"))
		return "", false
	}
	uid, ok := v.(string)
	if !ok || uid == "" {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "invalid uid in context"))
		return "", false
	}
	return uid, true
}
