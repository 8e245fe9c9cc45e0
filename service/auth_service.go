package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// AuthService 提供“鉴权核心能力”，供调用方自建中间件/拦截器使用。
// - 解析 token（Bearer 优先，其次 query）
// - 校验 token -> uid（Redis）
// - 注销 token / 注销用户全部 token
//
// OnAuthStateChanged 是登录态变化的显式出口：登录/登出时触发，
// engine 用它驱动通知引擎的 Start/Stop（切账号 = Stop 再 Start），
// 而不是靠散落的隐式生命周期钩子。
type AuthService struct {
	token *TokenService

	// OnAuthStateChanged signedIn=true 登录成功；false 全端登出
	OnAuthStateChanged func(uid string, signedIn bool)
}

func NewAuthService(token *TokenService) *AuthService {
	return &AuthService{token: token}
}

// ExtractToken 从 HTTP 请求中提取 token：优先 Authorization: Bearer，其次 query: token。
func (a *AuthService) ExtractToken(r *http.Request) string {
	if r == nil {
		return ""
	}

	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah != "" {
		parts := strings.SplitN(ah, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Authenticate 根据 token 获取 uid。
func (a *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("missing token")
	}
	return a.token.GetUIDByToken(ctx, token)
}

// AuthenticateRequest 从请求里抽 token 并鉴权。
func (a *AuthService) AuthenticateRequest(ctx context.Context, r *http.Request) (string, string, error) {
	t := a.ExtractToken(r)
	uid, err := a.Authenticate(ctx, t)
	return uid, t, err
}

// SignedIn 登录成功后由 UserService 调用，触发登录态回调
func (a *AuthService) SignedIn(uid string) {
	if a.OnAuthStateChanged != nil {
		a.OnAuthStateChanged(uid, true)
	}
}

// SignOut 注销单个 token。该用户没有存活 token 了才算登录态消失。
func (a *AuthService) SignOut(ctx context.Context, token string) error {
	uid, err := a.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := a.token.RevokeToken(ctx, token); err != nil {
		return err
	}
	left, err := a.token.ListUserTokens(ctx, uid)
	if err == nil && len(left) == 0 && a.OnAuthStateChanged != nil {
		a.OnAuthStateChanged(uid, false)
	}
	return nil
}

// SignOutAll 全端登出。
func (a *AuthService) SignOutAll(ctx context.Context, uid string) error {
	if err := a.token.RevokeAllTokensByUser(ctx, uid); err != nil {
		return err
	}
	if a.OnAuthStateChanged != nil {
		a.OnAuthStateChanged(uid, false)
	}
	return nil
}
