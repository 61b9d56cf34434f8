package router

import (
	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/config"
	"github.com/blues/tracker/internal/handler"
	"github.com/blues/tracker/internal/logic"
	"github.com/blues/tracker/internal/mention"
	"github.com/blues/tracker/internal/store"
	"github.com/gin-gonic/gin"
)

func Setup(st store.Store, provider *auth.HeaderProvider, cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()

	// 中间件
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(provider.Middleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "issue-tracker",
		})
	})

	dispatcher := mention.NewDispatcher(st, mention.Mode(cfg.Notification.Mode), cfg.Notification.PoolSize)
	issueHandler := handler.NewIssueHandler(logic.NewIssueLogic(st), provider)
	teamHandler := handler.NewTeamHandler(logic.NewTeamLogic(st), provider)
	commentHandler := handler.NewCommentHandler(logic.NewCommentLogic(st, dispatcher), logic.NewChatLogic(st), provider)
	notificationHandler := handler.NewNotificationHandler(logic.NewNotificationLogic(st), provider)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 课题相关路由
		issues := v1.Group("/issues")
		{
			issues.POST("", issueHandler.CreateIssue)
			issues.GET("", issueHandler.ListIssues)
			issues.GET("/summary", issueHandler.GetSummary)
			issues.GET("/stream", issueHandler.StreamIssues)
			issues.GET("/:id", issueHandler.GetIssue)
			issues.PUT("/:id", issueHandler.UpdateIssue)
			issues.DELETE("/:id", issueHandler.DeleteIssue)
			issues.POST("/:id/archive", issueHandler.ArchiveIssue)
			issues.POST("/:id/unarchive", issueHandler.UnarchiveIssue)
			issues.POST("/:id/watch", issueHandler.WatchIssue)
			issues.DELETE("/:id/watch", issueHandler.UnwatchIssue)

			issues.GET("/:id/comments", commentHandler.ListComments)
			issues.POST("/:id/comments", commentHandler.AddComment)
			issues.DELETE("/:id/comments/:commentId", commentHandler.DeleteComment)

			issues.GET("/:id/chat", commentHandler.ListMessages)
			issues.POST("/:id/chat", commentHandler.PostMessage)
			issues.GET("/:id/chat/stream", commentHandler.StreamMessages)
		}

		// 团队相关路由
		teams := v1.Group("/teams")
		{
			teams.POST("", teamHandler.CreateTeam)
			teams.GET("", teamHandler.ListTeams)
			teams.GET("/:id", teamHandler.GetTeam)
			teams.PUT("/:id", teamHandler.UpdateTeam)
			teams.DELETE("/:id", teamHandler.DeleteTeam)
			teams.POST("/:id/members", teamHandler.AddMember)
			teams.PUT("/:id/members/:uid", teamHandler.UpdateMemberRole)
			teams.DELETE("/:id/members/:uid", teamHandler.RemoveMember)
			teams.POST("/:id/invitations", teamHandler.InviteMember)
		}

		invitations := v1.Group("/invitations")
		{
			invitations.GET("", teamHandler.ListInvitations)
			invitations.POST("/:id/respond", teamHandler.RespondInvitation)
		}

		// 通知相关路由
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-User-Id, X-User-Name, X-User-Photo")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
