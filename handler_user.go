package tripchat_sdk

import (
	"errors"
	"net/http"

	"github.com/Josef-miguel/tripchat-sdk/response"
	"github.com/Josef-miguel/tripchat-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 用户（User）相关接口 --------------------

type RegisterReq struct {
	Username string `json:"username" binding:"required" example:"joao"`
	Nickname string `json:"nickname" example:"João"`
	Password string `json:"password" binding:"required" example:"123456"`
	Email    string `json:"email" example:"joao@example.com"`
}

// GinHandleUserRegister 用户注册
// @Summary 用户注册
// @Description 创建新用户账号：username + password (+ nickname/email)
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body RegisterReq true "注册信息"
// @Success 200 {object} response.Response "注册成功"
// @Failure 400 {object} response.Response "请求错误"
// @Router /user/register [post]
func (c *Engine) GinHandleUserRegister(ctx *gin.Context) {
	var req RegisterReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	u, err := c.UserService.Register(req.Username, req.Nickname, req.Password, req.Email)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(map[string]any{"uid": u.UID}))
}

type LoginReq struct {
	Username string `json:"username" binding:"required" example:"joao"`
	Password string `json:"password" binding:"required" example:"123456"`
}

// GinHandleUserLogin 用户登录
// @Summary 用户登录
// @Description 用户登录并返回 token，登录成功后未读聚合随登录态启动
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body LoginReq true "登录信息"
// @Success 200 {object} response.Response "登录响应（token + 用户信息）"
// @Failure 401 {object} response.Response "认证失败"
// @Router /user/login [post]
func (c *Engine) GinHandleUserLogin(ctx *gin.Context) {
	var req LoginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}

	u, token, err := c.UserService.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		code := response.CodeInternalError
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			code = response.CodeUserNotFound
		case errors.Is(err, service.ErrPasswordWrong):
			code = response.CodePasswordError
		}
		ctx.JSON(http.StatusOK, response.Error(code, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(map[string]any{
		"token":    token,
		"uid":      u.UID,
		"username": u.Username,
		"nickname": u.Nickname,
	}))
}

// GinHandleUserLogout 用户登出
// @Summary 用户登出
// @Description 吊销当前 token；该用户最后一个 token 被吊销时停止未读聚合
// @Tags 用户
// @Accept json
// @Produce json
// @Success 200 {object} response.Response "登出成功"
// @Security BearerAuth
// @Router /user/logout [post]
func (c *Engine) GinHandleUserLogout(ctx *gin.Context) {
	token := c.AuthService.ExtractToken(ctx.Request)
	if token == "" {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "missing token"))
		return
	}
	if err := c.AuthService.SignOut(ctx.Request.Context(), token); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleGetUserInfo 获取用户信息
// @Summary 获取用户信息
// @Description 根据 uid 查询用户详情，不传 uid 则查当前登录用户
// @Tags 用户
// @Accept json
// @Produce json
// @Param uid query string false "用户UID (不传则查自己)"
// @Success 200 {object} response.Response "查询成功"
// @Failure 401 {object} response.Response "未登录"
// @Security BearerAuth
// @Router /user/info [get]
func (c *Engine) GinHandleGetUserInfo(ctx *gin.Context) {
	targetUID := ctx.Query("uid")
	if targetUID == "" {
		uid, ok := currentUID(ctx)
		if !ok {
			return
		}
		targetUID = uid
	}

	u, err := c.UserService.GetUser(targetUID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeUserNotFound, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(u))
}

type EventMembershipReq struct {
	EventID string `json:"event_id" binding:"required" example:"evt_123"`
}

// GinHandleJoinEvent 加入行程
// @Summary 加入行程
// @Description 把行程加入当前用户的 joined_events，幂等；入群后群成员名单随之对齐
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body EventMembershipReq true "行程"
// @Success 200 {object} response.Response "加入成功"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /user/events/join [post]
func (c *Engine) GinHandleJoinEvent(ctx *gin.Context) {
	var req EventMembershipReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	uid, ok := currentUID(ctx)
	if !ok {
		return
	}

	if err := c.UserService.JoinEvent(uid, req.EventID); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	// 名单对齐失败不影响加入本身，错误只记在服务端日志里
	_, _ = c.MemberService.SyncMembers(req.EventID)

	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleLeaveEvent 退出行程
// @Summary 退出行程
// @Description 把行程移出当前用户的 joined_events，幂等
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body EventMembershipReq true "行程"
// @Success 200 {object} response.Response "退出成功"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /user/events/leave [post]
func (c *Engine) GinHandleLeaveEvent(ctx *gin.Context) {
	var req EventMembershipReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	uid, ok := currentUID(ctx)
	if !ok {
		return
	}

	if err := c.UserService.LeaveEvent(uid, req.EventID); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	_, _ = c.MemberService.SyncMembers(req.EventID)

	ctx.JSON(http.StatusOK, response.Success(nil))
}
