package tripchat_sdk

import (
	"errors"
	"net/http"

	"github.com/Josef-miguel/tripchat-sdk/response"
	"github.com/Josef-miguel/tripchat-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 消息（Message）相关接口 --------------------

type SendMessageReq struct {
	ConversationID string `json:"conversation_id" binding:"required" example:"u_1_u_2"`
	Content        string `json:"content" binding:"required" example:"你好"`
}

// GinHandleSendMessage 发送消息
// @Summary 发送消息
// @Description 往会话写入一条消息并刷新会话元数据（最后一条 + 活跃时间）
// @Tags 消息
// @Accept json
// @Produce json
// @Param req body SendMessageReq true "消息"
// @Success 200 {object} response.Response "已保存的消息"
// @Failure 400 {object} response.Response "请求错误"
// @Failure 403 {object} response.Response "群会话且不在名单内"
// @Security BearerAuth
// @Router /message/send [post]
func (c *Engine) GinHandleSendMessage(ctx *gin.Context) {
	var req SendMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	uid, ok := currentUID(ctx)
	if !ok {
		return
	}

	if eventID, isGroup := groupEventID(req.ConversationID); isGroup {
		if err := c.MemberService.CanAccessGroup(uid, eventID); err != nil {
			ctx.JSON(http.StatusForbidden, response.Error(response.CodeAccessDenied, err.Error()))
			return
		}
	}

	name := uid
	if u, err := c.UserService.GetUser(uid); err == nil && u != nil {
		if u.Nickname != "" {
			name = u.Nickname
		} else if u.Username != "" {
			name = u.Username
		}
	}

	msg, err := c.MsgService.SendMessage(req.ConversationID, uid, name, req.Content)
	if err != nil {
		// 消息本体已落库但元数据刷新失败时 msg 不为 nil，照样把消息给回去
		if msg != nil && errors.Is(err, service.ErrSendFailed) {
			ctx.JSON(http.StatusOK, response.Success(msg))
			return
		}
		ctx.JSON(http.StatusOK, response.Error(response.CodeSendFailed, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(msg))
}

// GinHandleListMessages 会话消息列表
// @Summary 会话消息列表
// @Description 某会话全部消息，按时间正序
// @Tags 消息
// @Accept json
// @Produce json
// @Param conversation_id query string true "会话 ID"
// @Success 200 {object} response.Response "消息列表"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /message/list [get]
func (c *Engine) GinHandleListMessages(ctx *gin.Context) {
	convID := ctx.Query("conversation_id")
	if convID == "" {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "conversation_id required"))
		return
	}
	uid, ok := currentUID(ctx)
	if !ok {
		return
	}

	if eventID, isGroup := groupEventID(convID); isGroup {
		if err := c.MemberService.CanAccessGroup(uid, eventID); err != nil {
			ctx.JSON(http.StatusForbidden, response.Error(response.CodeAccessDenied, err.Error()))
			return
		}
	}

	msgs, err := c.MsgService.ListMessages(convID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(msgs))
}

type EditMessageReq struct {
	ConversationID string `json:"conversation_id" binding:"required" example:"u_1_u_2"`
	MessageID      string `json:"message_id" binding:"required" example:"3f2a1c..."`
	Content        string `json:"content" binding:"required" example:"改过的内容"`
}

// GinHandleEditMessage 编辑消息
// @Summary 编辑消息
// @Description 只有发送者本人能编辑；会打上 edited 标记
// @Tags 消息
// @Accept json
// @Produce json
// @Param req body EditMessageReq true "编辑"
// @Success 200 {object} response.Response "编辑成功"
// @Failure 400 {object} response.Response "请求错误"
// @Failure 403 {object} response.Response "非本人消息"
// @Security BearerAuth
// @Router /message/edit [post]
func (c *Engine) GinHandleEditMessage(ctx *gin.Context) {
	var req EditMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	uid, ok := currentUID(ctx)
	if !ok {
		return
	}

	if err := c.MsgService.EditMessage(req.ConversationID, req.MessageID, uid, req.Content); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			ctx.JSON(http.StatusForbidden, response.Error(response.CodeUnauthorized, err.Error()))
			return
		}
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(nil))
}

type DeleteMessageReq struct {
	ConversationID string `json:"conversation_id" binding:"required" example:"u_1_u_2"`
	MessageID      string `json:"message_id" binding:"required" example:"3f2a1c..."`
}

// GinHandleDeleteMessage 删除消息
// @Summary 删除消息
// @Description 只有发送者本人能删除；最后一条被删时回退会话元数据
// @Tags 消息
// @Accept json
// @Produce json
// @Param req body DeleteMessageReq true "删除"
// @Success 200 {object} response.Response "删除成功"
// @Failure 400 {object} response.Response "请求错误"
// @Failure 403 {object} response.Response "非本人消息"
// @Security BearerAuth
// @Router /message/delete [post]
func (c *Engine) GinHandleDeleteMessage(ctx *gin.Context) {
	var req DeleteMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	uid, ok := currentUID(ctx)
	if !ok {
		return
	}

	if err := c.MsgService.DeleteMessage(req.ConversationID, req.MessageID, uid); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			ctx.JSON(http.StatusForbidden, response.Error(response.CodeUnauthorized, err.Error()))
			return
		}
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(nil))
}
