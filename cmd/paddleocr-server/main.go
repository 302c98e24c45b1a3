package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ocr "github.com/getcharzp/go-paddleocr"
	"github.com/getcharzp/go-paddleocr/internal/logger"
	"github.com/getcharzp/go-paddleocr/internal/monitor"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.Init(config.LogMode, config.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "初始化日志失败:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if config.LogMode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := ocr.NewPaddleOcrEngine(config.Engine)
	if err != nil {
		logger.Log().Fatal("创建 OCR 引擎失败", zap.Error(err))
	}
	defer engine.Destroy()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	servers := []*http.Server{{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: newRouter(engine, config.MaxBodySize),
	}}
	if config.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", monitor.Handler())
		servers = append(servers, &http.Server{Addr: fmt.Sprintf(":%d", config.MetricsPort), Handler: mux})
		go func() {
			if err := monitor.SampleProcess(ctx, 500*time.Millisecond); err != nil {
				logger.Log().Warn("进程指标采样失败", zap.Error(err))
			}
		}()
	}

	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Log().Info("HTTP 服务启动", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log().Error("HTTP 服务异常退出", zap.String("addr", srv.Addr), zap.Error(err))
				stop()
			}
		}(srv)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log().Error("HTTP 服务关闭失败", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
	logger.Log().Info("服务已安全退出")
}
