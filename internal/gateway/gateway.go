package gateway

import (
	"fmt"

	gatewayhttp "fitness-gateway/internal/gateway/adapter/http"
	"fitness-gateway/internal/gateway/adapter/security"
	"fitness-gateway/internal/gateway/adapter/upstream"
	"fitness-gateway/internal/gateway/config"
	"fitness-gateway/internal/gateway/domain/repository"
	"fitness-gateway/internal/gateway/usecase"
	"fitness-gateway/internal/shared/eventbus"
	"fitness-gateway/internal/shared/logger"
	"fitness-gateway/internal/shared/metrics"

	"github.com/gofiber/fiber/v2"
)

// GatewayModule represents the complete session proxy gateway module.
type GatewayModule struct {
	store     repository.SessionStore
	upstream  repository.UpstreamClient
	codec     *security.CookieCodec
	usecase   usecase.GatewayUsecaseInterface
	handler   *gatewayhttp.GatewayHTTPHandler
	wsHandler *gatewayhttp.SessionEventsHandler
	config    *config.Config
	log       logger.Logger
}

// NewGatewayModule wires the gateway: upstream client, cookie codec, token
// cipher, usecase and HTTP handlers around the provided session store.
func NewGatewayModule(
	cfg *config.Config,
	store repository.SessionStore,
	bus *eventbus.EventBus,
	m *metrics.Metrics,
	log logger.Logger,
) (*GatewayModule, error) {
	codec, err := security.NewCookieCodec(cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie codec: %w", err)
	}

	cipher, err := security.NewTokenCipher(cfg.SessionCipherKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cipher: %w", err)
	}

	client := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, log, upstream.WithMetrics(m))

	uc := usecase.NewGatewayUsecase(client, store, cipher, bus, m, cfg.SessionTTL, log)

	return &GatewayModule{
		store:     store,
		upstream:  client,
		codec:     codec,
		usecase:   uc,
		handler:   gatewayhttp.NewGatewayHTTPHandler(uc, codec, cfg, log),
		wsHandler: gatewayhttp.NewSessionEventsHandler(bus, log),
		config:    cfg,
		log:       log,
	}, nil
}

// RegisterRoutes registers gateway routes with the provided router.
func (gm *GatewayModule) RegisterRoutes(router fiber.Router) {
	middleware := gm.GetMiddleware()
	gm.handler.SetupRoutes(router, middleware)
	gm.wsHandler.RegisterRoutes(router, middleware)
}

// GetUsecase returns the gateway usecase for external access.
func (gm *GatewayModule) GetUsecase() usecase.GatewayUsecaseInterface {
	return gm.usecase
}

// GetMiddleware returns the session middleware.
func (gm *GatewayModule) GetMiddleware() *gatewayhttp.SessionMiddleware {
	return gatewayhttp.NewSessionMiddleware(gm.usecase, gm.codec, gm.config.CookieName, gm.log)
}

// Stop performs cleanup when the module is shut down.
func (gm *GatewayModule) Stop() error {
	return nil
}
