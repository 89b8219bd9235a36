package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Nevern1y/Whity-sub000/config"
	"github.com/Nevern1y/Whity-sub000/internal/api/middleware"
	"github.com/Nevern1y/Whity-sub000/internal/api/router"
	"github.com/Nevern1y/Whity-sub000/internal/api/server"
	v1 "github.com/Nevern1y/Whity-sub000/internal/api/v1"
	"github.com/Nevern1y/Whity-sub000/internal/observability/metrics"
	"github.com/Nevern1y/Whity-sub000/internal/realtime"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/bus"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/handler"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/manager"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/presence"
	eventrouter "github.com/Nevern1y/Whity-sub000/internal/realtime/router"
	"github.com/Nevern1y/Whity-sub000/internal/repository"
	"github.com/Nevern1y/Whity-sub000/internal/service"
	"github.com/Nevern1y/Whity-sub000/pkg/async"
	"github.com/Nevern1y/Whity-sub000/pkg/ctxmeta"
	"github.com/Nevern1y/Whity-sub000/pkg/db"
	"github.com/Nevern1y/Whity-sub000/pkg/idgen"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
	pkgredis "github.com/Nevern1y/Whity-sub000/pkg/redis"
	"github.com/Nevern1y/Whity-sub000/pkg/util"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := flag.String("config", os.Getenv("REALTIME_CONFIG"), "配置文件路径，为空使用默认配置")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志
	zl, err := logger.Build(cfg.Logger)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	logger.ReplaceGlobal(zl)
	defer zl.Sync()

	// 3. 初始化小组件：JWT、雪花 ID
	util.InitJWT(cfg.JWT)
	if err := idgen.Init(idgen.NodeIDFromEnv()); err != nil {
		log.Fatalf("初始化雪花节点失败: %v", err)
	}

	// 4. 初始化异步任务池（上下文透传走 ctxmeta）
	async.SetContextPropagator(ctxmeta.Propagate)
	if err := async.Init(cfg.Async); err != nil {
		log.Fatalf("初始化异步任务池失败: %v", err)
	}
	defer async.Release()

	// 5. 初始化 Redis（失败不阻塞启动，在线镜像与限流降级）
	redisClient, err := pkgredis.Build(cfg.Redis)
	if err != nil {
		logger.Warn(ctx, "Redis 初始化失败，在线镜像与限流将降级",
			logger.ErrorField("error", err),
		)
		redisClient = nil
	} else {
		pkgredis.ReplaceGlobal(redisClient)
		logger.Info(ctx, "Redis 初始化成功", logger.String("addr", cfg.Redis.Addr))
	}

	// 6. 初始化 MySQL
	gdb, err := db.Build(cfg.DB)
	if err != nil {
		log.Fatalf("初始化MySQL失败: %v", err)
	}

	// 7. 注册 Prometheus 指标
	metrics.MustRegister("realtime")

	// 8. 组装依赖 - Repository 层
	friendRepo := repository.NewFriendshipRepository(gdb)
	msgRepo := repository.NewMessageRepository(gdb)
	notifyRepo := repository.NewNotificationRepository(gdb, redisClient)

	// 9. 组装依赖 - 实时中枢（注册表、房间、跨实例事件总线、在线镜像）
	instanceID := uuid.NewString()
	eventBus := bus.New(cfg.Kafka, instanceID)
	hub := realtime.NewHub(
		manager.NewRegistry(),
		manager.NewRoomManager(),
		eventBus,
		presence.NewMirror(redisClient),
	)

	// 10. 组装依赖 - Service 层（业务层通过 Emitter 接口扇出）
	notificationSvc := service.NewNotificationService(notifyRepo, hub)
	friendSvc := service.NewFriendshipService(cfg.Realtime, friendRepo, notificationSvc, service.AllowAllResolver{}, hub)
	messageSvc := service.NewMessageService(cfg.Realtime, msgRepo, friendSvc, service.AllowAllResolver{}, hub)
	// 在线状态变更需要好友列表，回填打破 Hub 与好友服务的环
	hub.SetFriendLister(friendSvc)

	// 11. 启动跨实例事件总线消费
	if eventBus != nil {
		go func() {
			if err := hub.StartBus(ctx); err != nil {
				logger.Error(ctx, "事件总线消费退出", logger.ErrorField("error", err))
			}
		}()
	}

	// 12. 组装依赖 - 接入层
	authenticator := handler.NewAuthenticator(redisClient)
	evRouter := eventrouter.NewRouter(hub, friendSvc, messageSvc)
	wsHandler := handler.NewWSHandler(cfg.Realtime, hub, authenticator, evRouter)

	rateLimiter := middleware.NewRedisRateLimiter(50, 100)
	rateLimiter.SetClient(redisClient)

	handlers := &router.Handlers{
		WS:           wsHandler,
		Friendship:   v1.NewFriendshipHandler(friendSvc),
		Message:      v1.NewMessageHandler(messageSvc),
		Notification: v1.NewNotificationHandler(notificationSvc),
		Presence:     v1.NewPresenceHandler(hub),
		RateLimiter:  rateLimiter,
	}

	// 13. 启动 HTTP 服务
	srv := server.New(cfg.Server, router.InitRouter(handlers))
	go func() {
		logger.Info(ctx, "实时服务启动", logger.String("addr", cfg.Server.Addr))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "HTTP 服务异常退出", logger.ErrorField("error", err))
			cancel()
		}
	}()

	// 14. 等待退出信号，优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info(ctx, "收到退出信号", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// 先停 HTTP 入口，再关连接层；总线由 Hub.Shutdown 负责关闭
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "HTTP 停机失败", logger.ErrorField("error", err))
	}
	hub.Shutdown(shutdownCtx)

	// 给异步任务一点收尾时间
	time.Sleep(200 * time.Millisecond)
	logger.Info(context.Background(), "实时服务已退出")
}
