package bootstrap

import (
	"context"
	"time"

	"kb-console/internal/config"
	"kb-console/internal/constant"
	"kb-console/internal/controller"
	"kb-console/internal/handler"
	"kb-console/internal/pkg/logger"
	"kb-console/internal/repository/memory"
	"kb-console/internal/service"
	"kb-console/internal/websocket"
	"kb-console/pkg/events"
	"kb-console/pkg/kbclient"
	pktNats "kb-console/pkg/nats"
	"kb-console/pkg/registry"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ConsoleController controller.IConsoleController
	FileController    controller.IFileController
	HealthController  controller.IHealthController

	// Services (exposed for main.go to run)
	ConsoleService    service.IConsoleService
	TranscriptService service.ITranscriptService

	// WebSockets
	TranscriptHandler *handler.TranscriptHandler
	WebSocketHub      *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// Options overrides pieces of the wiring. Zero values use the defaults.
type Options struct {
	Logger    logger.ILogger
	API       kbclient.API
	Scheduler registry.Scheduler
}

func NewContainer(cfg *config.Config, opts Options) *Container {
	sysLogger := opts.Logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	}

	c := &Container{Logger: sysLogger}

	// 1. Backend client
	api := opts.API
	if api == nil {
		api = kbclient.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	}

	// 2. Event bus for transcript events. Publishing blocks until the relay
	// acks so events reach sockets in mutation order.
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		},
		logger.NewWatermillAdapter(sysLogger, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure, all optional
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Infra.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.Infra.NatsURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS, activity events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	rdb := newRedisClient(cfg.Infra.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 4. WebSocket hub
	c.WebSocketHub = websocket.NewHub(rdb, sysLogger)

	// 5. Services
	c.TranscriptService = service.NewTranscriptService(pubSub, pubSub, constant.TranscriptTopic, c.WebSocketHub, sysLogger)

	consoles := memory.NewConsoleRepository(cfg.Console.TTL, func(id string) {
		sysLogger.Info("Bootstrap", "Console expired", map[string]interface{}{"console_id": id})
	})

	c.ConsoleService = service.NewConsoleService(
		api,
		consoles,
		c.TranscriptService,
		publisher,
		opts.Scheduler,
		cfg.Console.ReloadDelay,
		sysLogger,
	)

	// 6. Controllers and handlers
	c.ConsoleController = controller.NewConsoleController(c.ConsoleService)
	c.FileController = controller.NewFileController(c.ConsoleService, cfg.Console.ReloadDelay)
	c.HealthController = controller.NewHealthController(c.ConsoleService)
	c.TranscriptHandler = handler.NewTranscriptHandler(c.WebSocketHub, sysLogger)

	return c
}

// Start runs the background workers until ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)
	return c.TranscriptService.Relay(ctx)
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newRedisClient(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Bootstrap", "Failed to connect to Redis, socket fan-out stays local", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
