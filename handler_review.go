package tripchat_sdk

import (
	"net/http"

	"github.com/Josef-miguel/tripchat-sdk/response"
	"github.com/gin-gonic/gin"
)

// -------------------- 行程评论（Review）相关接口 --------------------

type AddReviewReq struct {
	EventID string `json:"event_id" binding:"required" example:"evt_123"`
	Content string `json:"content" binding:"required" example:"行程很棒"`
}

// GinHandleAddReview 给行程写评论
// @Summary 发表行程评论
// @Description 写入评论并通知该行程拥有者的未读聚合
// @Tags 评论
// @Accept json
// @Produce json
// @Param req body AddReviewReq true "评论"
// @Success 200 {object} response.Response "已保存的评论"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /review/add [post]
func (c *Engine) GinHandleAddReview(ctx *gin.Context) {
	var req AddReviewReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	uid, ok := currentUID(ctx)
	if !ok {
		return
	}

	username := uid
	if u, err := c.UserService.GetUser(uid); err == nil && u != nil && u.Username != "" {
		username = u.Username
	}

	r, err := c.ReviewService.AddReview(req.EventID, uid, username, req.Content)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(r))
}

// GinHandleListReviews 行程评论列表
// @Summary 行程评论列表
// @Description 某行程全部评论，按时间正序
// @Tags 评论
// @Accept json
// @Produce json
// @Param event_id query string true "行程 ID"
// @Success 200 {object} response.Response "评论列表"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /review/list [get]
func (c *Engine) GinHandleListReviews(ctx *gin.Context) {
	eventID := ctx.Query("event_id")
	if eventID == "" {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "event_id required"))
		return
	}
	if _, ok := currentUID(ctx); !ok {
		return
	}

	reviews, err := c.ReviewService.ListEventReviews(eventID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(reviews))
}
