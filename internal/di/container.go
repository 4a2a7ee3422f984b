package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fitness-gateway/internal/gateway"
	"fitness-gateway/internal/gateway/adapter/persistence/memory"
	"fitness-gateway/internal/gateway/adapter/persistence/mongostore"
	"fitness-gateway/internal/gateway/adapter/persistence/redisstore"
	"fitness-gateway/internal/gateway/config"
	"fitness-gateway/internal/gateway/domain/repository"
	"fitness-gateway/internal/menu"
	"fitness-gateway/internal/shared/eventbus"
	"fitness-gateway/internal/shared/logger"
	"fitness-gateway/internal/shared/metrics"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Container wires the application's modules and owns their backing
// connections for lifecycle management.
type Container struct {
	mu sync.RWMutex

	// Module instances
	GatewayModule *gateway.GatewayModule
	MenuModule    *menu.MenuModule

	// Shared infrastructure
	EventBus *eventbus.EventBus
	Metrics  *metrics.Metrics

	// Backing connections (nil unless the configured store needs them)
	RedisClient *redis.Client
	MongoClient *mongo.Client

	// Configuration
	GatewayConfig *config.Config

	Logger logger.Logger
}

// NewContainer creates a new DI container.
func NewContainer(log logger.Logger) *Container {
	return &Container{
		EventBus: eventbus.NewEventBus(log),
		Metrics:  metrics.New(),
		Logger:   log,
	}
}

// InitializeGateway initializes the session gateway module, building the
// session store the configuration selects.
func (c *Container) InitializeGateway(ctx context.Context, cfg *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GatewayConfig = cfg

	store, err := c.buildSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build session store: %w", err)
	}

	module, err := gateway.NewGatewayModule(cfg, store, c.EventBus, c.Metrics, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway module: %w", err)
	}

	c.GatewayModule = module
	return nil
}

// InitializeMenu initializes the navigation menu module. The gateway module
// must be initialized first: the menu's HTTP surface resolves viewers
// through its session middleware.
func (c *Container) InitializeMenu() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.GatewayModule == nil {
		return fmt.Errorf("gateway module must be initialized before menu module")
	}

	module, err := menu.NewMenuModule(c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create menu module: %w", err)
	}

	c.MenuModule = module
	return nil
}

// buildSessionStore constructs the configured session store driver.
func (c *Container) buildSessionStore(ctx context.Context, cfg *config.Config) (repository.SessionStore, error) {
	switch cfg.SessionStore {
	case config.StoreMemory:
		c.Logger.Warn("Using in-memory session store; sessions will not survive a restart")
		return memory.NewStore(), nil

	case config.StoreRedis:
		client := config.NewRedisClient(&cfg.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.GetAddr(), err)
		}
		c.RedisClient = client
		return redisstore.NewStore(client, c.Logger), nil

	case config.StoreMongoDB:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		c.MongoClient = client
		return mongostore.NewStore(ctx, client.Database(cfg.MongoDatabase))

	default:
		return nil, fmt.Errorf("unknown session store driver %q", cfg.SessionStore)
	}
}

// GetGatewayModule returns the gateway module instance.
func (c *Container) GetGatewayModule() *gateway.GatewayModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GatewayModule
}

// GetMenuModule returns the menu module instance.
func (c *Container) GetMenuModule() *menu.MenuModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MenuModule
}

// HealthCheck verifies the backing connections are reachable.
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.RedisClient != nil {
		if err := c.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis health check failed: %w", err)
		}
	}

	if c.MongoClient != nil {
		if err := c.MongoClient.Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongodb health check failed: %w", err)
		}
	}

	return nil
}

// Cleanup shuts down modules and connections in reverse initialization order.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.GatewayModule != nil {
		if err := c.GatewayModule.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop gateway module: %w", err))
		}
		c.GatewayModule = nil
	}
	c.MenuModule = nil

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis client: %w", err))
		}
		c.RedisClient = nil
	}

	if c.MongoClient != nil {
		if err := c.MongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect MongoDB: %w", err))
		}
		c.MongoClient = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// Close gracefully shuts down the container with a timeout.
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warnf("Cleanup errors occurred: %v", err)
		return err
	}
	return nil
}
