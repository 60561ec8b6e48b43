package bootstrap

import (
	"spapperi-configurator/internal/config"
	"spapperi-configurator/internal/controller"
	"spapperi-configurator/internal/pkg/logger"
	"spapperi-configurator/internal/pkg/mailer"
	"spapperi-configurator/internal/repository"
	"spapperi-configurator/internal/repository/implementation"
	"spapperi-configurator/internal/service"
	"spapperi-configurator/pkg/events"
	pktNats "spapperi-configurator/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	Logger logger.ILogger

	// Controllers
	RelayController controller.IRelayController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Event Bus
	EventBus *gochannel.GoChannel

	natsPub *pktNats.Publisher
}

// NewContainer wires the relay. db may be nil; funnel events are then only logged.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	return NewContainerWithLogger(db, cfg, sysLogger)
}

func NewContainerWithLogger(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) *Container {
	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)

	publishers := events.MultiPublisher{events.NewBusPublisher(pubSub, cfg.Events.Topic)}

	// NATS is optional: funnel events also leave the process when it is configured
	var natsPub *pktNats.Publisher
	if cfg.Events.NatsURL != "" {
		p, err := pktNats.NewPublisher(cfg.Events.NatsURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			natsPub = p
			publishers = append(publishers, natsPub)
		}
	}

	// 3. Repositories
	var funnelRepo repository.FunnelEventRepository
	if db != nil {
		funnelRepo = implementation.NewFunnelEventRepository(db)
	}

	// 4. Services
	var notifier mailer.ILeadNotifier
	if cfg.Mail.Host != "" && cfg.Mail.Recipient != "" {
		notifier = mailer.NewEmailNotifier(
			cfg.Mail.Host,
			cfg.Mail.Port,
			cfg.Mail.Username,
			cfg.Mail.Password,
			cfg.Mail.Sender,
			cfg.Mail.Recipient,
			cfg.App.PublicURL,
			sysLogger,
		)
	}

	consumerService := service.NewConsumerService(pubSub, cfg.Events.Topic, funnelRepo, notifier, sysLogger)
	relayService := service.NewRelayService(
		config.ResolveBackendURL,
		cfg.Backend.Timeout,
		publishers,
		sysLogger,
	)

	// 5. Controllers
	return &Container{
		Logger:          sysLogger,
		RelayController: controller.NewRelayController(relayService),
		ConsumerService: consumerService,
		EventBus:        pubSub,
		natsPub:         natsPub,
	}
}

// Close releases the event bus and broker connections.
func (c *Container) Close() {
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.EventBus != nil {
		_ = c.EventBus.Close()
	}
	_ = c.Logger.Sync()
}
