package app

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"example.com/shopcart/internal/handlers"
	"example.com/shopcart/internal/service"
	"example.com/shopcart/internal/store"
)

// NewServer opens the store, builds the services and returns the router
// with a cleanup func that releases everything in reverse order.
func NewServer(cfg Config) (*gin.Engine, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- DB ---
	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { store.Close(db) })
	if err := store.Migrate(db); err != nil {
		cleanup()
		return nil, nil, err
	}
	zap.L().Info("database ready", zap.String("driver", cfg.Database.Driver))

	// --- side channels ---
	cache := service.NoopProductCache()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		perr := rdb.Ping(ctx).Err()
		cancel()
		if perr != nil {
			zap.L().Warn("redis unavailable, product cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(perr))
			_ = rdb.Close()
		} else {
			cache = service.NewRedisProductCache(rdb, cfg.Redis.TTL)
			closers = append(closers, func() { _ = rdb.Close() })
		}
	}

	events := service.NoopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := service.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		events = service.NewKafkaPublisher(producer, cfg.Kafka.Topic)
		closers = append(closers, func() { closeProducer(producer) })
	}

	email := service.NewEmailService(cfg.SMTP)
	if cfg.SMTP.Host != "" {
		async, err := service.NewAsyncEmailService(email, cfg.SMTP.Workers)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		email = async
		closers = append(closers, async.Close)
	}

	ids, err := service.NewSnowflakeIDs(cfg.Order.NodeID)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// --- services ---
	auth := service.NewAuthService(db, cfg.Auth)
	catalog := service.NewCatalogService(db, cache)
	cart := service.NewCartService(db)
	checkout := service.NewCheckoutService(db, service.CheckoutDeps{
		IDs:    ids,
		Cache:  cache,
		Events: events,
		Email:  email,
	})
	orders := service.NewOrderService(db)

	// --- jobs ---
	sched, err := newScheduler(cfg.Jobs, catalog)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	sched.Start()
	closers = append(closers, func() { <-sched.Stop().Done() })

	// --- gin ---
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handlers.NewRouter(handlers.Deps{
		Auth:         auth,
		Catalog:      catalog,
		Cart:         cart,
		Checkout:     checkout,
		Orders:       orders,
		SecureCookie: cfg.IsProd(),
	})
	return r, cleanup, nil
}

func closeProducer(p sarama.SyncProducer) {
	if err := p.Close(); err != nil {
		zap.L().Warn("close kafka producer", zap.Error(err))
	}
}
