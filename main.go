package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerniceZTT/crm_lifecycle/config"
	"github.com/BerniceZTT/crm_lifecycle/controllers"
	"github.com/BerniceZTT/crm_lifecycle/middleware"
	"github.com/BerniceZTT/crm_lifecycle/repository"
	"github.com/BerniceZTT/crm_lifecycle/routes"
	"github.com/BerniceZTT/crm_lifecycle/service"
	"github.com/BerniceZTT/crm_lifecycle/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig()

	// 初始化日志
	utils.InitLogger(cfg.Debug)

	// 设置Gin模式
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化存储
	var (
		store repository.Store
		stats routes.StatsReporter
		mongo *repository.MongoStore
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		utils.Logger.Warn().Msg("使用内存存储，数据不会持久化")
		store = repository.NewMemoryStore()
	default:
		initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		var err error
		mongo, err = repository.InitMongoDB(initCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			cancel()
			utils.Logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		if err := mongo.InitializeCollections(initCtx); err != nil {
			utils.Logger.Error().Err(err).Msg("初始化数据库集合失败")
		}
		cancel()
		store = mongo
		stats = mongo
	}

	// 业务服务
	customers := service.NewCustomerService(store, service.WithConflictRetries(cfg.ConflictRetries))
	handler := controllers.NewHandler(customers, service.NewHistoryService(store), service.NewPublicPoolService(store))

	// 定时任务
	scheduler := service.NewScheduler()
	autoTransfer := service.NewAutoTransferJob(store, customers)
	err := scheduler.AddJob("customer-auto-transfer", cfg.AutoTransferCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := autoTransfer.Run(ctx); err != nil {
			utils.Logger.Error().Err(err).Msg("客户自动转移任务失败")
		}
	})
	if err != nil {
		utils.Logger.Fatal().Err(err).Msg("注册定时任务失败")
	}
	scheduler.Start()

	// 创建Gin实例
	router := gin.New()

	// 应用中间件
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.OperationLoggerMiddleware())

	// 注册路由
	routes.RegisterRoutes(router, routes.Options{
		Handler:   handler,
		JWTSecret: []byte(cfg.JWTKey),
		Stats:     stats,
	})

	// 设置HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 启动服务器
	go func() {
		utils.Logger.Info().Msgf("服务器启动，监听端口: %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal().Err(err).Msg("启动服务器失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Error().Err(err).Msg("服务器关闭异常")
	}

	// 等待运行中的定时任务结束
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		utils.Logger.Warn().Msg("定时任务未在超时前结束")
	}

	if mongo != nil {
		mongo.Close(ctx)
	}

	utils.Logger.Info().Msg("服务器已优雅关闭")
}
