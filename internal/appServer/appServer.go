package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/event-booker/config"
	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/service"
	"github.com/ds124wfegd/event-booker/internal/transport"
	"github.com/ds124wfegd/event-booker/internal/worker"
	"github.com/ds124wfegd/event-booker/pkg/auth"
	"github.com/ds124wfegd/event-booker/pkg/queue"
	"github.com/ds124wfegd/event-booker/pkg/redis"
	"github.com/ds124wfegd/event-booker/pkg/telegram"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {
	setupLogging(&cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	repos, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeStorage()

	// Redis backs the event cache and the task queue
	var redisClient *goredis.Client
	if cfg.Cache.Enabled || cfg.Queue.Enabled {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logrus.Errorf("Redis unavailable: %v. Continuing without cache and queue...", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	if cfg.Cache.Enabled && redisClient != nil {
		repos.Events = cacheEvents(repos.Events, redisClient, cfg.Cache.TTL)
		logrus.Info("Event cache enabled")
	}

	ledger := capacity.NewLedger(repos.Events)

	// Notifications
	publisher := newBrokerPublisher(&cfg.Broker)
	defer func() {
		if err := publisher.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close broker publisher")
		}
	}()

	var sender service.MessageSender
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logrus.Errorf("Telegram bot init failed: %v. Notifications disabled", err)
		} else {
			sender = bot
			logrus.WithField("bot", bot.Username()).Info("Telegram bot initialized")
		}
	} else {
		logrus.Warn("Telegram bot token not provided, notifications disabled")
	}
	notifier := service.NewBookingNotifier(publisher, sender)

	// Task queue
	var (
		redisQueue    *queue.RedisQueue
		dlqHandler    *queue.DefaultDLQHandler
		taskPublisher service.TaskPublisher
	)
	if cfg.Queue.Enabled && redisClient != nil {
		queueCfg := queue.DefaultRedisQueueConfig()
		queueCfg.Prefix = cfg.Queue.Prefix
		queueCfg.MaxRetries = cfg.Queue.MaxRetries
		queueCfg.BaseDelay = cfg.Queue.BaseDelay

		retryManager := queue.NewRetryManager(cfg.Queue.MaxRetries, cfg.Queue.BaseDelay)
		dlqHandler = queue.NewDefaultDLQHandler(redisClient, cfg.Queue.Prefix)
		redisQueue = queue.NewRedisQueue(redisClient, queueCfg, retryManager, dlqHandler)
		taskPublisher = service.NewQueueAdapter(redisQueue)

		taskHandler := worker.NewTaskHandler(ledger, notifier)
		if err := redisQueue.Subscribe(ctx, taskHandler.Handle); err != nil {
			logrus.Fatalf("Queue subscriber error: %v", err)
		}
		logrus.Info("Queue subscriber started")
	} else {
		taskPublisher = service.NewDirectPublisher(ledger, notifier)
		logrus.Warn("Task queue disabled, follow-up work runs in process")
	}

	// Services
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	bookingService := service.NewBookingService(repos.Bookings, repos.Events, repos.Users, ledger, taskPublisher)
	eventService := service.NewEventService(repos.Events, ledger)
	userService := service.NewUserService(repos.Users, tokens)

	// Capacity audit
	auditWorker := worker.NewCapacityAuditWorker(repos.Events, repos.Bookings, ledger, cfg.Worker.AuditInterval, cfg.Worker.AuditRepair)
	go auditWorker.Start(ctx)

	// Handlers
	adminHandler := transport.NewAdminHandler(nil, nil)
	if redisQueue != nil {
		adminHandler = transport.NewAdminHandler(redisQueue, dlqHandler)
	}
	handlers := &transport.Handlers{
		Events:   transport.NewEventHandler(eventService),
		Bookings: transport.NewBookingHandler(bookingService),
		Users:    transport.NewUserHandler(userService),
		Admin:    adminHandler,
	}

	if cfg.Server.Env == "production" || cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		err := srv.Run(cfg, transport.InitRoutes(handlers, tokens, cfg.Server.RequestTimeout))
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":    cfg.Server.Port,
		"storage": cfg.Storage.Driver,
		"version": cfg.Server.AppVersion,
	}).Info("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Info("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	cancel()
	if redisQueue != nil {
		if err := redisQueue.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close task queue")
		}
	}
}

func setupLogging(cfg *config.LogConfig) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
