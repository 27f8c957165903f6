package bootstrap

import (
	"context"
	"log"

	"restaurant-booking-be/internal/config"
	"restaurant-booking-be/internal/controller"
	"restaurant-booking-be/internal/handler"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/internal/pkg/mailer"
	"restaurant-booking-be/internal/pkg/serverutils"
	"restaurant-booking-be/internal/repository/implementation"
	"restaurant-booking-be/internal/repository/unitofwork"
	"restaurant-booking-be/internal/service"
	"restaurant-booking-be/internal/websocket"
	"restaurant-booking-be/pkg/booking/orchestrator"
	"restaurant-booking-be/pkg/events"
	pktNats "restaurant-booking-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// TurnTopic carries completed turns from the orchestrator to the recorder.
const TurnTopic = "booking.turns"

type Container struct {
	// Controllers
	AuthController    controller.IAuthController
	UserController    controller.IUserController
	ChatController    controller.IChatController
	BookingController controller.IBookingController

	// Background Services (Exposed for main.go to run)
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	Logger logger.ILogger

	agent   *Agent
	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	apiLogger := logger.NewIsolatedLogger(cfg.App.ApiLogFilePath)

	if cfg.App.JwtSecret == "" {
		log.Fatalf("[FATAL] JWT_SECRET is required")
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)

	// 3. Infrastructure
	// NATS
	var bookingEvents events.Publisher = events.NopPublisher{}
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		var err error
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			bookingEvents = natsPub
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			natsSub = nil
		}
	}

	// Redis
	rdb := ConnectRedis(ctx, cfg.App.RedisURL)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run(ctx)

	// 4. Conversation core
	publisherService := service.NewPublisherService(TurnTopic, pubSub)
	bookingService := service.NewBookingService(uowFactory)
	agent, err := NewAgent(ctx, cfg, rdb, bookingService, sysLogger, apiLogger,
		orchestrator.WithObserver(service.NewTurnObserver(publisherService, sysLogger)),
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize booking agent: %v", err)
	}

	// 5. Services
	consumerService := service.NewConsumerService(
		pubSub,
		TurnTopic,
		uowFactory,
		bookingEvents,
		cfg.Restaurant.Name,
		sysLogger,
	)

	userService := service.NewUserService(uowFactory, sysLogger)
	authService := service.NewAuthService(uowFactory, cfg.App.JwtSecret, sysLogger)
	chatService := service.NewChatService(uowFactory, agent.Orchestrator, agent.Store, userService, sysLogger)

	var eventSource service.EventSource
	if natsSub != nil {
		eventSource = natsSub
	}
	notificationService := service.NewNotificationService(
		implementation.NewNotificationRepository(db),
		eventSource,
		wsHub,
		sysLogger,
	)
	if cfg.SMTP.Host != "" {
		notificationService.UseMailer(mailer.NewEmailService(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password,
			cfg.SMTP.SenderEmail, cfg.Restaurant.Name,
		))
	}

	// 6. Controllers
	auth := serverutils.NewJwtMiddleware(cfg.App.JwtSecret)

	return &Container{
		AuthController:    controller.NewAuthController(authService),
		UserController:    controller.NewUserController(userService, auth),
		ChatController:    controller.NewChatController(chatService, auth),
		BookingController: controller.NewBookingController(bookingService, auth),

		ConsumerService:     consumerService,
		NotificationService: notificationService,

		NotificationHandler: handler.NewNotificationHandler(notificationService, chatService, wsHub, cfg.App.JwtSecret, sysLogger),
		WebSocketHub:        wsHub,

		Logger: sysLogger,

		agent:   agent,
		natsPub: natsPub,
		natsSub: natsSub,
		rdb:     rdb,
	}
}

// Close releases broker and cache connections.
func (c *Container) Close() {
	c.agent.Close()
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.Logger.Sync()
}

// ConnectRedis returns nil when redis is not configured or not reachable.
func ConnectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
