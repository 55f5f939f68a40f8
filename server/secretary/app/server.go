package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	commonauth "secretary_server/server/common/auth"
	"secretary_server/server/common/infra/cache"
	"secretary_server/server/common/infra/mq"
	"secretary_server/server/secretary/api"
	"secretary_server/server/secretary/repository"
	"secretary_server/server/secretary/service"
)

type Server struct {
	HTTPServer        *http.Server
	Redis             *redis.Client
	MQConn            *amqp.Connection
	TenantRedisRouter *cache.TenantRedisRouter
	Publisher         *service.AMQPPublisher
	Hub               *service.Hub
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient := cache.NewClient(cfg.RedisAddr)
	if err := cache.Ping(ctx, redisClient); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	router := cache.NewTenantRedisRouter(redisClient)
	stores := repository.NewStores(router)

	var (
		mqConn    *amqp.Connection
		publisher *service.AMQPPublisher
		events    service.EventPublisher = service.NopPublisher{}
		err       error
	)
	if cfg.UseMQ {
		mqConn, err = mq.NewConnection(cfg.LavinMQURL)
		if err != nil {
			return nil, fmt.Errorf("initialize lavinmq: %w", err)
		}
		publisher, err = service.NewAMQPPublisher(mqConn)
		if err != nil {
			return nil, fmt.Errorf("initialize amqp publisher: %w", err)
		}
		events = publisher
	}

	tenantRepo := repository.NewTenantRepository(stores)
	userRepo := repository.NewUserRepository(stores)
	taskRepo := repository.NewTaskRepository(stores)
	eventRepo := repository.NewEventRepository(stores)
	usageRepo := repository.NewUsageRepository(stores)
	messageRepo := repository.NewMessageRepository(stores)
	tokenRepo := repository.NewTokenRepository(stores)

	classifier := service.NewClassifierClient(cfg.ClassifierEndpoint, cfg.ClassifierAPIKey, cfg.ClassifierModel)
	notifier := service.NewNotifierClient(cfg.NotifierEndpoint, cfg.NotifierToken)

	hub := service.NewHub()
	hub.UseRedis(redisClient)
	if err := hub.StartSubscriber(context.Background()); err != nil {
		return nil, fmt.Errorf("start feed subscriber: %w", err)
	}

	usageSvc := service.NewUsageService(tenantRepo, userRepo, usageRepo, router.InvalidateTenant)
	taskSvc := service.NewTaskService(taskRepo, events)
	calendarSvc := service.NewCalendarService(eventRepo, events)
	tenantSvc := service.NewTenantService(tenantRepo, userRepo, events)
	commandSvc := service.NewCommandService(userRepo, messageRepo, classifier, notifier)
	messageSvc := service.NewMessageService(messageRepo, userRepo, taskRepo, eventRepo, usageSvc)
	assistantSvc := service.NewAssistantService(tenantSvc, taskSvc, calendarSvc, usageSvc, commandSvc,
		userRepo, messageRepo, classifier, notifier, hub, events)
	oauthSvc := service.NewOAuthService(service.OAuthConfig{
		AuthURL:      cfg.CalendarAuthURL,
		TokenURL:     cfg.CalendarTokenURL,
		ClientID:     cfg.CalendarClientID,
		ClientSecret: cfg.CalendarClientSecret,
		RedirectURI:  cfg.CalendarRedirectURI,
		Scope:        cfg.CalendarScope,
	}, tokenRepo)
	jwtSvc := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)
	accountSvc := service.NewAuthService(userRepo, jwtSvc)
	realtimeSvc := service.NewRealtimeService(hub)

	h := api.NewHandler(taskSvc, calendarSvc, usageSvc, tenantSvc, messageSvc, assistantSvc,
		commandSvc, oauthSvc, accountSvc, realtimeSvc, jwtSvc, cfg.WebhookSecret)
	r := gin.Default()
	h.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		HTTPServer:        httpServer,
		Redis:             redisClient,
		MQConn:            mqConn,
		TenantRedisRouter: router,
		Publisher:         publisher,
		Hub:               hub,
	}, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.Hub != nil {
		s.Hub.StopSubscriber()
	}
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.TenantRedisRouter != nil {
		s.TenantRedisRouter.Close()
	}
	if s.MQConn != nil {
		_ = s.MQConn.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	return s.HTTPServer.Shutdown(ctx)
}
