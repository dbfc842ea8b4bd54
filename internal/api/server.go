package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SanjitSai/AspireTest/internal/account"
	"github.com/SanjitSai/AspireTest/internal/api/middleware"
	"github.com/SanjitSai/AspireTest/internal/config"
	"github.com/SanjitSai/AspireTest/internal/pkg/mailqueue"
	"github.com/SanjitSai/AspireTest/internal/pkg/metrics"
	"github.com/SanjitSai/AspireTest/internal/pkg/notify"
	"github.com/SanjitSai/AspireTest/internal/pkg/skillcache"
	"github.com/SanjitSai/AspireTest/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有账号存储、Redis 客户端、邮件投递队列以及 Gin 路由引擎。
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	rdb    *redis.Client
	router *gin.Engine
	svc    *account.Service
	mail   *mailqueue.Dispatcher
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 按配置打开账号存储（MySQL 或 JSON 文件）并完成迁移
// 2. 连接 Redis
// 3. 启动邮件投递队列
// 4. 初始化 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	var (
		accountStore account.Store
		db           *gorm.DB
	)
	switch cfg.Storage.Driver {
	case "", "mysql":
		gdb, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
		})
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		gs, err := store.NewGormStore(gdb)
		if err != nil {
			return nil, fmt.Errorf("migrate mysql: %w", err)
		}
		accountStore = gs
		db = gdb
	case "file":
		fs, err := store.NewFileStore(cfg.Storage.FilePath)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		accountStore = fs
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	emailNotifier := notify.NewEmailNotifier(&cfg.Email, logger)
	mail := mailqueue.NewDispatcher(
		emailNotifier,
		logger,
		cfg.App.MailWorkers,
		cfg.App.MailQueueCapacity,
		cfg.App.MailSendTimeout,
	)
	mail.Start(ctx)

	cache := skillcache.NewCache(rdb, time.Hour)

	// 初始化 Prometheus 指标
	metrics.InitMetrics()

	svc := account.NewService(accountStore, mail, cache, logger,
		cfg.Security.JWTSecret, cfg.Security.TokenTTL)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:    cfg,
		logger: logger,
		db:     db,
		rdb:    rdb,
		router: r,
		svc:    svc,
		mail:   mail,
	}
	s.registerRoutes()
	return s, nil
}

// Run 启动 HTTP 服务器并开始监听请求。
func (s *Server) Run() error {
	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭邮件队列、数据库与缓存连接。
func (s *Server) Close() error {
	if s.mail != nil {
		s.mail.Shutdown()
	}

	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	s.router.POST("/register", s.handleRegister)
	s.router.POST("/verify", s.handleVerify)
	s.router.POST("/login", s.handleLogin)
	s.router.POST("/forgotpassword", s.handleForgotPassword)
	s.router.POST("/verifyForgotPassword", s.handleVerifyForgotPassword)
	s.router.PUT("/resetpassword", s.handleResetPassword)

	s.router.GET("/skills", s.handlePredefinedSkills)

	authed := s.router.Group("/")
	authed.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret))
	authed.PUT("/addskill", s.handleAddSkill)
	authed.DELETE("/deleteskill", s.handleDeleteSkill)
	authed.POST("/addeducation", s.handleUpsertEducation)
	authed.PUT("/updateeducation", s.handleUpsertEducation)
	authed.POST("/addwork", s.handleUpsertWork)
	authed.PUT("/updatework", s.handleUpsertWork)

	admin := s.router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret))
	admin.Use(middleware.RequireAdmin())
	admin.PUT("/skills", s.handleCurateSkills)
	admin.PUT("/skills/new", s.handleMergeProposedSkills)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db != nil {
		var one int
		if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
			return
		}
	}
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
