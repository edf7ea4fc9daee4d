package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/config"
	"github.com/SuyogBora/picode-server/internal/database"
	"github.com/SuyogBora/picode-server/internal/handler"
	"github.com/SuyogBora/picode-server/internal/logger"
	"github.com/SuyogBora/picode-server/internal/middleware"
	"github.com/SuyogBora/picode-server/internal/queue"
	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/router"
	"github.com/SuyogBora/picode-server/internal/service"
	"github.com/SuyogBora/picode-server/internal/socket"
	"github.com/SuyogBora/picode-server/internal/storage"
	"github.com/SuyogBora/picode-server/internal/validation"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := config.LoadDotenv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	zl, err := logger.New(cfg.IsProduction(), os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis is optional: rate limiting and caching pass through without it.
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		zl.Warn("redis unavailable; rate limiting and cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	perms := repository.NewPermissionRepo(db)
	tokens := repository.NewTokenRepo(db)

	// ---- Real-time notifications ----
	sockCfg := config.LoadSocketConfig()
	registry := socket.NewRegistry(zl)
	sockSrv := socket.NewServer(sockCfg, registry, socket.NewTokenAuthenticator(cfg.JWTSecret, users), zl)

	var (
		workers  sync.WaitGroup
		notifier service.Notifier
	)
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	local := service.NewLocalNotifier(registry)
	notifier = local
	if qcfg := config.LoadQueueConfig(); qcfg.Enabled() {
		pub := service.NewQueuePublisher(qcfg.URL, qcfg.Exchange, local, zl)
		defer pub.Close()
		notifier = pub
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := queue.StartNotificationConsumer(bgCtx, qcfg.URL, qcfg.Exchange, registry, zl); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("notification consumer stopped", zap.Error(err))
			}
		}()
		zl.Info("notifications fan out through broker", zap.String("exchange", qcfg.Exchange))
	}

	// ---- Object storage ----
	var files handler.Presigner
	if p, err := storage.New(ctx, config.LoadStorageConfig()); err == nil {
		files = p
	} else if !errors.Is(err, storage.ErrDisabled) {
		return err
	} else {
		zl.Info("object storage not configured; file endpoints return 503")
	}

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(zl))

	rl := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	// apiLimit runs behind JWTAuth on authenticated routes so the
	// ip_user_route key names the caller; on public reads it keys as guest.
	var (
		apiLimit    = middleware.NewTokenBucket(rl, rdb, zl)
		publicLimit = middleware.NewTokenBucket(rl.Public(), rdb, zl)
		cache       = middleware.NewRedisCache(cacheCfg, rdb)
		invalidator = middleware.NewCacheInvalidator(cacheCfg, rdb, zl)
		auth        = middleware.AfterAuth(middleware.JWTAuth(cfg.JWTSecret, users), apiLimit)
	)

	router.RegisterRoutes(e, db, sockSrv, sockCfg.Path)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, roles, tokens, zl), auth, publicLimit)
	router.RegisterRBAC(e, auth,
		handler.NewRoleHandler(roles, zl),
		handler.NewPermissionHandler(perms, zl),
		handler.NewUserHandler(users, tokens, zl))
	admin := router.Admin{
		Blogs:        handler.NewBlogHandler(repository.NewBlogRepo(db), notifier, invalidator, zl),
		Careers:      handler.NewCareerHandler(repository.NewCareerRepo(db), notifier, invalidator, zl),
		Applications: handler.NewApplicationHandler(repository.NewApplicationRepo(db), notifier, zl),
		Inquiries:    handler.NewInquiryHandler(repository.NewInquiryRepo(db), notifier, zl),
		Files:        handler.NewFileHandler(files, zl),
		Dashboard:    handler.NewDashboardHandler(repository.NewDashboardRepo(db), zl),
	}
	router.RegisterAdmin(e, auth, admin)
	router.RegisterPublic(e, admin, cache, apiLimit, publicLimit)

	workers.Add(1)
	go func() {
		defer workers.Done()
		purgeTokens(bgCtx, tokens, zl)
	}()

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	if err := sockSrv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("socket shutdown", zap.Error(err))
	}
	cancelBg()
	workers.Wait()
	return nil
}

// purgeTokens deletes expired refresh tokens once an hour.
func purgeTokens(ctx context.Context, tokens *repository.TokenRepo, zl *zap.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := tokens.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				zl.Warn("purge refresh tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				zl.Info("purged refresh tokens", zap.Int64("count", n))
			}
		}
	}
}

func requestLogger(zl *zap.Logger) echo.MiddlewareFunc {
	hl := zl.Named("http")
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				hl.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			hl.Info("request", fields...)
			return nil
		},
	})
}
