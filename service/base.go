package service

import (
	"github.com/Josef-miguel/tripchat-sdk/realtime"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Service 基础服务，包含数据库、Redis 和公共回调
type Service struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string
	Debug       bool

	// Bus 变更总线：所有写入后发信号，订阅方重查全量
	Bus *realtime.Bus

	// WsNotifier 用于给在线用户推 WebSocket 消息的回调函数。
	// 避免循环依赖，通过函数注入的方式（engine 注入）。
	WsNotifier func(uid string, message []byte)
}

// Table 获取带前缀的表名
func (s *Service) Table(name string) *gorm.DB {
	return s.DB.Table(name)
}
