package tripchat_sdk

import (
	"errors"
	"net/http"

	"github.com/Josef-miguel/tripchat-sdk/response"
	"github.com/Josef-miguel/tripchat-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 会话（Conversation）相关接口 --------------------

type EnsureConversationReq struct {
	OtherUID string `json:"other_uid" binding:"required" example:"u_42"`
}

// GinHandleEnsureConversation 确保私聊会话存在
// @Summary 打开/创建私聊会话
// @Description 两个 UID 推导固定会话 ID，已存在则原样返回（不覆盖既有元数据）
// @Tags 会话
// @Accept json
// @Produce json
// @Param req body EnsureConversationReq true "对方 UID"
// @Success 200 {object} response.Response "会话"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /conversation/ensure [post]
func (c *Engine) GinHandleEnsureConversation(ctx *gin.Context) {
	var req EnsureConversationReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	uid, ok := currentUID(ctx)
	if !ok {
		return
	}

	conv, err := c.ConversationService.EnsureConversation(uid, req.OtherUID)
	if err != nil {
		code := response.CodeInternalError
		if errors.Is(err, service.ErrAuthRequired) {
			code = response.CodeTokenInvalid
		}
		ctx.JSON(http.StatusOK, response.Error(code, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(conv))
}

type EnsureGroupReq struct {
	EventID string `json:"event_id" binding:"required" example:"evt_123"`
}

// GinHandleEnsureGroup 确保行程群聊存在
// @Summary 打开/创建行程群聊
// @Description 会话 ID 固定为 group_<event_id>，成员名单按行程参与者对齐
// @Tags 会话
// @Accept json
// @Produce json
// @Param req body EnsureGroupReq true "行程"
// @Success 200 {object} response.Response "群会话"
// @Failure 400 {object} response.Response "请求错误"
// @Failure 403 {object} response.Response "不在行程名单内"
// @Security BearerAuth
// @Router /conversation/group/ensure [post]
func (c *Engine) GinHandleEnsureGroup(ctx *gin.Context) {
	var req EnsureGroupReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	uid, ok := currentUID(ctx)
	if !ok {
		return
	}

	if err := c.MemberService.CanAccessGroup(uid, req.EventID); err != nil {
		if errors.Is(err, service.ErrAccessDenied) {
			ctx.JSON(http.StatusForbidden, response.Error(response.CodeAccessDenied, err.Error()))
			return
		}
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	conv, err := c.ConversationService.EnsureGroupConversation(uid, req.EventID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(conv))
}

// GinHandleListConversations 会话收件箱
// @Summary 我的会话列表
// @Description 当前用户参与的全部会话，按最近活跃倒序
// @Tags 会话
// @Accept json
// @Produce json
// @Success 200 {object} response.Response "会话列表"
// @Security BearerAuth
// @Router /conversation/list [get]
func (c *Engine) GinHandleListConversations(ctx *gin.Context) {
	uid, ok := currentUID(ctx)
	if !ok {
		return
	}

	convs, err := c.ConversationService.ListConversationsFor(uid)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(convs))
}

// GinHandleSyncGroupMembers 对齐群成员名单
// @Summary 对齐群成员名单
// @Description 把群会话的 participants 重算为「joined_events 包含该行程的用户」
// @Tags 会话
// @Accept json
// @Produce json
// @Param req body EnsureGroupReq true "行程"
// @Success 200 {object} response.Response "对齐后的名单"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /conversation/group/sync [post]
func (c *Engine) GinHandleSyncGroupMembers(ctx *gin.Context) {
	var req EnsureGroupReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if _, ok := currentUID(ctx); !ok {
		return
	}

	roster, err := c.MemberService.SyncMembers(req.EventID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(map[string]any{"members": roster}))
}
