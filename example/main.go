package main

import (
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	tripchat "github.com/Josef-miguel/tripchat-sdk"
	"github.com/Josef-miguel/tripchat-sdk/middleware"
)

func main() {
	// 1. 初始化数据库连接
	dsn := "root:password@tcp(127.0.0.1:3306)/tripchat_db?charset=utf8mb4&parseTime=True&loc=Local"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("数据库连接失败:", err)
	}

	// 2. 初始化 Redis（token 鉴权 + 变更总线都依赖它）
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	// 3. 初始化 Engine（单例模式，全局只需调用一次）
	engine := tripchat.NewEngine(
		tripchat.WithDB(db),
		tripchat.WithRDB(rdb),
		tripchat.WithTablePrefix("tc_"), // 自定义表前缀
		tripchat.WithAutoNotify(true),   // 登录即启动未读聚合
	)

	// 4. 创建 Gin 路由
	r := gin.Default()

	// 设置 CORS（如果需要）
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// 注册 Swagger UI
	tripchat.RegisterSwagger(r, "/swagger/*any")

	// 5. WebSocket 连接路由
	// 客户端连接：ws://localhost:8080/ws?token=YOUR_TOKEN
	r.GET("/ws", func(c *gin.Context) {
		uid, _, err := engine.AuthService.AuthenticateRequest(c.Request.Context(), c.Request)
		if err != nil {
			c.JSON(401, gin.H{"error": "token 无效"})
			return
		}
		engine.ServeWS(c.Writer, c.Request, uid)
	})

	// 6. API 路由组
	api := r.Group("/api/v1")

	// 开放接口
	api.POST("/user/register", engine.GinHandleUserRegister)
	api.POST("/user/login", engine.GinHandleUserLogin)

	// 需要登录的接口
	authed := api.Group("", engine.GinAuthMiddleware(&middleware.AuthOptions{}))

	userAPI := authed.Group("/user")
	{
		userAPI.POST("/logout", engine.GinHandleUserLogout)
		userAPI.GET("/info", engine.GinHandleGetUserInfo)
		userAPI.POST("/events/join", engine.GinHandleJoinEvent)
		userAPI.POST("/events/leave", engine.GinHandleLeaveEvent)
	}

	convAPI := authed.Group("/conversation")
	{
		convAPI.POST("/ensure", engine.GinHandleEnsureConversation)
		convAPI.POST("/group/ensure", engine.GinHandleEnsureGroup)
		convAPI.POST("/group/sync", engine.GinHandleSyncGroupMembers)
		convAPI.GET("/list", engine.GinHandleListConversations)
	}

	messageAPI := authed.Group("/message")
	{
		messageAPI.POST("/send", engine.GinHandleSendMessage)
		messageAPI.GET("/list", engine.GinHandleListMessages)
		messageAPI.POST("/edit", engine.GinHandleEditMessage)
		messageAPI.POST("/delete", engine.GinHandleDeleteMessage)
	}

	notifyAPI := authed.Group("/notify")
	{
		notifyAPI.GET("/unread", engine.GinHandleGetUnread)
		notifyAPI.POST("/read", engine.GinHandleMarkAsRead)
	}

	reviewAPI := authed.Group("/review")
	{
		reviewAPI.POST("/add", engine.GinHandleAddReview)
		reviewAPI.GET("/list", engine.GinHandleListReviews)
	}

	// 7. 启动服务器
	log.Println("TripChat Server 启动在 :8080")
	log.Println("Swagger UI: http://localhost:8080/swagger/index.html")
	log.Println("WebSocket 地址: ws://localhost:8080/ws?token=YOUR_TOKEN")
	if err := r.Run(":8080"); err != nil {
		log.Fatal("服务器启动失败:", err)
	}
}
