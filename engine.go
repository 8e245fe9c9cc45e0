package tripchat_sdk

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/Josef-miguel/tripchat-sdk/cons"
	"github.com/Josef-miguel/tripchat-sdk/middleware"
	model "github.com/Josef-miguel/tripchat-sdk/models"
	"github.com/Josef-miguel/tripchat-sdk/realtime"
	"github.com/Josef-miguel/tripchat-sdk/service"
	"github.com/gin-gonic/gin"
)

type Engine struct {
	config *Config

	UserService         *service.UserService
	ConversationService *service.ConversationService
	MsgService          *service.MessageService
	MemberService       *service.MemberService
	ReviewService       *service.ReviewService
	NotifyService       *service.NotifyService
	AuthService         *service.AuthService // 鉴权服务
	TokenService        *service.TokenService
	WsServer            *WsServer
}

var (
	Instance *Engine
	once     sync.Once
)

// NewEngine 创建实例
// 使用选项模式传入配置，Option回调
func NewEngine(opts ...Option) *Engine {
	once.Do(func() {
		c := &Config{
			TablePrefix: "tc_", // Default
		}
		for _, opt := range opts {
			opt(c)
		}

		Instance = &Engine{config: c}

		// 初始化 WS
		Instance.WsServer = NewWsServer()
		go Instance.WsServer.Run()

		// 初始化基础 Service，注入变更总线与 WsNotifier 回调
		baseService := &service.Service{
			DB:          c.DB,
			RDB:         c.RDB,
			TablePrefix: c.TablePrefix,
			Debug:       c.Service.Debug,
			Bus:         realtime.NewBus(c.RDB),
			WsNotifier:  Instance.WsServer.SendToUser, // 注入 WebSocket 通知函数
		}

		// 初始化各个 Service
		Instance.TokenService = service.NewTokenService(c.RDB)
		Instance.AuthService = service.NewAuthService(Instance.TokenService)
		Instance.UserService = service.NewUserService(baseService, Instance.TokenService, Instance.AuthService)
		Instance.ConversationService = service.NewConversationService(baseService)
		Instance.MsgService = service.NewMessageService(baseService)
		Instance.MemberService = service.NewMemberService(baseService)
		Instance.ReviewService = service.NewReviewService(baseService)
		Instance.NotifyService = service.NewNotifyService(baseService)

		// 登录态驱动未读聚合的生命周期
		if c.AutoNotify {
			Instance.AuthService.OnAuthStateChanged = func(uid string, signedIn bool) {
				if signedIn {
					if err := Instance.NotifyService.Start(uid); err != nil {
						log.Printf("notify start failed for %s: %v", uid, err)
					}
					return
				}
				Instance.NotifyService.Stop()
			}
		}

		// 迁移表
		if err := Instance.AutoMigrate(); err != nil {
			log.Printf("AutoMigrate failed: %v", err)
		}

		// 使用闭包处理 WS 上行消息
		Instance.WsServer.onMessage = func(client *Client, msg []byte) {
			var req wsSendReq
			if err := json.Unmarshal(msg, &req); err != nil {
				log.Printf("Invalid message format: %v", err)
				return
			}
			if req.ConversationID == "" || req.Content == "" {
				return
			}

			// 群会话要求发送者在行程名单里
			if eventID, ok := groupEventID(req.ConversationID); ok {
				if err := Instance.MemberService.CanAccessGroup(client.UID, eventID); err != nil {
					log.Printf("ws send denied: uid=%s conv=%s: %v", client.UID, req.ConversationID, err)
					return
				}
			}

			if _, err := Instance.MsgService.SendMessage(req.ConversationID, client.UID, client.Name, req.Content); err != nil {
				log.Printf("Failed to save message: %v", err)
			}
		}
	})

	return Instance
}

// wsSendReq WS 上行发消息载荷
type wsSendReq struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// groupEventID 从群会话 ID 还原行程 ID
func groupEventID(convID string) (string, bool) {
	if len(convID) > len(cons.GroupIDPrefix) && convID[:len(cons.GroupIDPrefix)] == cons.GroupIDPrefix {
		return convID[len(cons.GroupIDPrefix):], true
	}
	return "", false
}

func (c *Engine) AutoMigrate() error {
	db := c.config.DB
	log.Println("AutoMigrate...")
	return db.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Message{},
		&model.Event{},
		&model.Review{},
	)
}

/*
*	提供的HTTP接口在此处，也可以直接自己写controller然后调用service
*	推荐自己写controller，因为这样更灵活
 */

// ServeWS 处理 WebSocket 请求，需要传入已鉴权的 uid
func (c *Engine) ServeWS(w http.ResponseWriter, r *http.Request, uid string) {
	name := ""
	if user, err := c.UserService.GetUser(uid); err == nil && user != nil {
		name = user.Nickname
		if name == "" {
			name = user.Username
		}
	}
	c.WsServer.ServeWS(w, r, uid, name)
}

// HandleWS 返回 WebSocket 的Handler
func (c *Engine) HandleWS(uid string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.ServeWS(w, r, uid)
	}
}

// GinAuthMiddleware 返回配置好的 Gin 鉴权中间件
// 使用 Engine 内部的 AuthService 和 Redis 配置
//
// 使用示例:
//
//	engine := tripchat_sdk.NewEngine(...)
//	r := gin.Default()
//	r.Use(engine.GinAuthMiddleware(nil)) // 使用默认配置
//	// 或自定义配置
//	r.Use(engine.GinAuthMiddleware(&middleware.AuthOptions{
//	    HeaderKey: "X-Token",
//	    QueryKey: "access_token",
//	}))
func (c *Engine) GinAuthMiddleware(opt *middleware.AuthOptions) gin.HandlerFunc {
	return middleware.GinAuthMiddleware(c.AuthService, opt)
}
