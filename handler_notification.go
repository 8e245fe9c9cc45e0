package tripchat_sdk

import (
	"net/http"

	"github.com/Josef-miguel/tripchat-sdk/response"
	"github.com/gin-gonic/gin"
)

// -------------------- 未读通知（Notify）相关接口 --------------------

// GinHandleGetUnread 当前未读聚合
// @Summary 未读聚合计数
// @Description 返回 messages/reviews/total 三个计数；聚合未启动时全为 0
// @Tags 通知
// @Accept json
// @Produce json
// @Success 200 {object} response.Response{data=service.UnreadAggregate} "聚合计数"
// @Security BearerAuth
// @Router /notify/unread [get]
func (c *Engine) GinHandleGetUnread(ctx *gin.Context) {
	if _, ok := currentUID(ctx); !ok {
		return
	}
	ctx.JSON(http.StatusOK, response.Success(c.NotifyService.Counts()))
}

// GinHandleMarkAsRead 全部标记已读
// @Summary 标记全部已读
// @Description 计数清零、基线推到现在；之后的新到达照常计数
// @Tags 通知
// @Accept json
// @Produce json
// @Success 200 {object} response.Response{data=service.UnreadAggregate} "清零后的聚合"
// @Security BearerAuth
// @Router /notify/read [post]
func (c *Engine) GinHandleMarkAsRead(ctx *gin.Context) {
	if _, ok := currentUID(ctx); !ok {
		return
	}
	c.NotifyService.MarkAsRead()
	ctx.JSON(http.StatusOK, response.Success(c.NotifyService.Counts()))
}
