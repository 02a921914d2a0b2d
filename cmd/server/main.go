// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/LessonReel/internal/api"
	"github.com/Corphon/LessonReel/internal/app"
	"github.com/Corphon/LessonReel/internal/config"
	"github.com/Corphon/LessonReel/internal/di"
	"github.com/Corphon/LessonReel/internal/utils"
)

// version 构建时通过 -ldflags 注入
var version = "dev"

func main() {
	log.Println("🚀 启动 LessonReel 服务器...")

	// 1. 首先加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 基础配置加载完成，端口: %s", baseConfig.Port)

	// 2. 创建必要的目录
	createDirectories(baseConfig)

	// 3. 结构化日志
	logger := utils.GetLogger()
	logger.SetDevelopment(baseConfig.DebugMode)
	logger.SetLogLevel(utils.ParseLogLevel(baseConfig.LogLevel))
	logFile := filepath.Join(baseConfig.LogDir, fmt.Sprintf("server_%s.log", time.Now().Format("2006-01-02")))
	if err := utils.InitLogger(logFile); err != nil {
		log.Printf("⚠️ 无法初始化日志文件: %v", err)
	}
	defer logger.Sync()

	// 4. 初始化配置系统
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		logger.Fatal("Config initialization failed", map[string]interface{}{"error": err.Error()})
	}

	// 5. 链路追踪
	shutdownTracing := utils.InitTracing(context.Background(), utils.TracingConfig{
		Enabled:     baseConfig.OTelEnabled,
		ServiceName: api.ServiceName,
		Version:     version,
		SampleRatio: baseConfig.OTelSampleRatio,
	})

	// 6. 初始化所有服务（按依赖顺序）
	if err := app.InitServices(baseConfig); err != nil {
		logger.Fatal("Service initialization failed", map[string]interface{}{"error": err.Error()})
	}
	if err := performHealthCheck(); err != nil {
		logger.Warn("Service health check warning", map[string]interface{}{"error": err.Error()})
	}

	// 7. 设置路由（只获取服务，不创建）
	router, err := api.SetupRouter(baseConfig)
	if err != nil {
		logger.Fatal("Router setup failed", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Server starting", map[string]interface{}{
		"port":       baseConfig.Port,
		"output_dir": baseConfig.OutputDir,
		"version":    version,
	})
	log.Printf("🔗 访问地址: http://localhost:%s", baseConfig.Port)

	setupGracefulShutdown(router, baseConfig.Port, shutdownTracing)
}

// 健康检查函数
func performHealthCheck() error {
	container := di.GetContainer()

	// 检查关键服务是否已注册
	criticalServices := []string{"generation", "jobs", "artifacts", "image_store"}
	for _, serviceName := range criticalServices {
		if !container.Has(serviceName) {
			return fmt.Errorf("关键服务未注册: %s", serviceName)
		}
	}
	return nil
}

// 优雅关闭函数
func setupGracefulShutdown(router *gin.Engine, port string, shutdownTracing func(context.Context) error) {
	logger := utils.GetLogger()
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 在新的 goroutine 中启动服务器
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
		}
	}()

	// 等待中断信号以进行优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server", nil)

	// 给定超时时间关闭服务器
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}
	app.Shutdown(ctx, di.GetContainer())
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("Tracer shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Server stopped", nil)
}

// createDirectories 创建应用所需的目录结构
func createDirectories(cfg *config.Config) {
	for _, dir := range []string{cfg.OutputDir, cfg.DataDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("创建目录失败 %s: %v", dir, err)
		}
	}
}
