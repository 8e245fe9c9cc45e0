package service

import "errors"

// 业务错误。调用方用 errors.Is 判断，HTTP 层映射成业务码。
var (
	// ErrAuthRequired 操作要求已登录用户，但当前没有
	ErrAuthRequired = errors.New("auth required")

	// ErrUnauthorized 编辑/删除只允许消息作者本人
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSendFailed 消息落库或元数据更新失败（元数据已重试一次）
	ErrSendFailed = errors.New("send failed")

	// ErrAccessDenied 不在群成员里也不在行程名单里
	ErrAccessDenied = errors.New("access denied")

	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")

	// ErrPasswordWrong 密码错误
	ErrPasswordWrong = errors.New("password wrong")
)
