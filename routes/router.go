package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BerniceZTT/crm_lifecycle/controllers"
	"github.com/BerniceZTT/crm_lifecycle/middleware"
)

// StatsReporter 提供存储状态的后端, 用于健康检查
type StatsReporter interface {
	Stats(ctx context.Context) map[string]interface{}
}

// Options 路由依赖
type Options struct {
	Handler   *controllers.Handler
	JWTSecret []byte
	// Stats 为空时健康检查只返回状态
	Stats StatsReporter
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, opts Options) {
	// 健康检查路由
	router.GET("/api/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if opts.Stats != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			body["database"] = opts.Stats.Stats(ctx)
		}
		c.JSON(http.StatusOK, body)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 业务接口都需要认证
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(opts.JWTSecret))

	RegisterCustomerRoutes(api, opts.Handler)
	RegisterCustomerAssignmentRoutes(api, opts.Handler)
	RegisterCustomerProgressRoutes(api, opts.Handler)
	RegisterPublicPoolRoutes(api, opts.Handler)
}
