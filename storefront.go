// Package storefront wires the commerce client core together: cart store,
// backend gateway, image upload coordinator and product creation workflow.
// A Client corresponds to one storefront session.
package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/merchware/storefront/cart"
	cartredis "github.com/merchware/storefront/cart/redis"
	"github.com/merchware/storefront/gateway"
	"github.com/merchware/storefront/pkg/config"
	apperrors "github.com/merchware/storefront/pkg/errors"
	"github.com/merchware/storefront/pkg/httpclient"
	"github.com/merchware/storefront/pkg/logger"
	"github.com/merchware/storefront/upload"
	"github.com/merchware/storefront/workflow"
)

// Config holds the storefront client configuration.
type Config struct {
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASS" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// CartTTL is how long a persisted cart snapshot survives, in hours.
	// Zero keeps it forever.
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"0"`

	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	HTTPMaxRetries int           `env:"HTTP_MAX_RETRIES" envDefault:"3"`
}

func (c *Config) validate() error {
	if c.APIBaseURL == "" {
		return apperrors.InvalidInput("API_BASE_URL is required")
	}
	if c.RedisAddr == "" {
		return apperrors.InvalidInput("REDIS_ADDR is required")
	}
	return nil
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Client is the assembled storefront session.
type Client struct {
	cfg    *Config
	logger *slog.Logger
	rdb    *redis.Client

	Cart    *cart.Store
	Gateway *gateway.Client
	Uploads *upload.Coordinator
}

// New builds a client from the configuration, connects to Redis and loads
// the persisted cart snapshot.
func New(ctx context.Context, cfg *Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log := logger.New("storefront", cfg.LogLevel)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.InfoContext(ctx, "connected to Redis", slog.String("addr", cfg.RedisAddr))

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.HTTPTimeout
	httpCfg.MaxRetries = cfg.HTTPMaxRetries
	httpc := httpclient.New(httpCfg)
	breaker := httpclient.NewCircuitBreakerClient(
		httpc,
		httpclient.DefaultCircuitBreakerConfig("commerce-api"),
		log,
	)

	gw := gateway.NewClient(breaker, cfg.APIBaseURL, log)
	uploads := upload.NewCoordinator(gw, log)

	cartTTL := time.Duration(cfg.CartTTL) * time.Hour
	repo := cartredis.NewSnapshotRepository(rdb, cartTTL)
	cartStore := cart.NewStore(repo, log)
	if err := cartStore.Initialize(ctx); err != nil {
		return nil, err
	}

	return &Client{
		cfg:     cfg,
		logger:  log,
		rdb:     rdb,
		Cart:    cartStore,
		Gateway: gw,
		Uploads: uploads,
	}, nil
}

// NewProductWorkflow creates a fresh product creation workflow. Each
// workflow is independent and owned by a single caller goroutine.
func (c *Client) NewProductWorkflow() *workflow.Workflow {
	return workflow.New(c.Gateway, c.Uploads, c.logger)
}

// Authenticate signs the user in and rebinds the gateway and the upload
// coordinator to the session token, so later calls carry it. Workflows
// created by NewProductWorkflow before this call keep the unauthenticated
// gateway; create workflows after authenticating.
func (c *Client) Authenticate(ctx context.Context, creds gateway.Credentials) (*gateway.Session, error) {
	session, err := c.Gateway.SignIn(ctx, creds)
	if err != nil {
		return nil, err
	}
	c.Gateway = c.Gateway.WithToken(session.Token)
	c.Uploads = upload.NewCoordinator(c.Gateway, c.logger)
	return session, nil
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
