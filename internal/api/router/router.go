// Package router 组装 gin 引擎：全局中间件、文档、指标与业务路由
package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/blogapi/config"
	_ "github.com/d60-Lab/blogapi/docs"
	"github.com/d60-Lab/blogapi/internal/api/handler"
	"github.com/d60-Lab/blogapi/internal/api/middleware"
	"github.com/d60-Lab/blogapi/pkg/metrics"
)

// New builds the engine. resolver turns bearer tokens into identities.
func New(cfg *config.Config, h *handler.Handler, resolver middleware.Resolver) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(), middleware.Logger())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	var gzipOpts []gzip.Option
	if cfg.Metrics.Enabled && cfg.Metrics.Path != "" {
		r.Use(middleware.Metrics())
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
		gzipOpts = append(gzipOpts, gzip.WithExcludedPaths([]string{cfg.Metrics.Path}))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzipOpts...))

	r.GET("/healthz", h.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("", middleware.Identity(resolver))
	{
		auth := api.Group("/auth")
		auth.POST("/register/", h.Register)
		auth.POST("/login/", h.Login)
		auth.POST("/refresh/", h.Refresh)
		auth.POST("/logout/", h.Logout)

		posts := api.Group("/posts")
		posts.GET("/", h.ListPosts)
		posts.POST("/", h.CreatePost)
		posts.GET("/search-filter/", h.ListPosts)
		posts.GET("/trending/", h.Trending)
		posts.GET("/:id/", h.GetPost)
		posts.PUT("/:id/", h.UpdatePost)
		posts.PATCH("/:id/", h.UpdatePost)
		posts.DELETE("/:id/", h.DeletePost)
		posts.GET("/:id/comments/", h.ListComments)
		posts.POST("/:id/comments/", h.CreateComment)

		// GET/POST 的 :id 是文章，PUT/DELETE 的 :id 是评论
		comments := api.Group("/comments")
		comments.GET("/:id/", h.ListComments)
		comments.POST("/:id/", h.CreateComment)
		comments.PUT("/:id/", h.UpdateComment)
		comments.PATCH("/:id/", h.UpdateComment)
		comments.DELETE("/:id/", h.DeleteComment)
		comments.GET("/detail/:id/", h.GetComment)

		api.POST("/likes/:id/", h.ToggleLike)
		api.GET("/likes/:id/", h.PostLikeCount)
		api.POST("/like/comment/:id/", h.ToggleCommentLike)
		api.GET("/like/comment/:id/", h.CommentLikeCount)
		api.GET("/like/comment/:id/count/", h.CommentLikeCount)

		api.GET("/bookmarks/", h.ListBookmarks)
		api.POST("/bookmarks/:id/", h.ToggleBookmark)

		api.POST("/media/", h.UploadMedia)

		notes := api.Group("/notifications")
		notes.GET("/", h.ListNotifications)
		notes.GET("/unread-count/", h.UnreadNotificationCount)
		notes.PUT("/read-all/", h.MarkAllNotificationsRead)
		notes.PUT("/:id/", h.MarkNotificationRead)

		api.GET("/users/me/", h.Me)
		api.PUT("/users/me/", h.UpdateMe)
		api.PATCH("/users/me/", h.UpdateMe)
		api.PUT("/users/role/", h.SetOwnRole)
		api.GET("/profiles/:id/", h.PublicProfile)

		dash := api.Group("/dashboard")
		dash.GET("/", h.Dashboard)
		dash.GET("/posts/", h.DashboardPosts)
		dash.GET("/comments/", h.DashboardComments)
		dash.GET("/likes/", h.DashboardLikes)
		dash.GET("/notifications/", h.ListNotifications)

		api.GET("/api/stats/posts/", h.Stats)

		admin := api.Group("/admin")
		admin.GET("/users/", h.ListUsers)
		admin.PUT("/users/:id/role/", h.UpdateUserRole)
	}
	return r
}
