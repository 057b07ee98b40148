package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/aq2208/goshop-api/configs"
	"github.com/aq2208/goshop-api/internal/adapter/cache"
	"github.com/aq2208/goshop-api/internal/adapter/http"
	"github.com/aq2208/goshop-api/internal/adapter/http/middleware"
	"github.com/aq2208/goshop-api/internal/adapter/kafka"
	"github.com/aq2208/goshop-api/internal/adapter/queue"
	"github.com/aq2208/goshop-api/internal/adapter/repo"
	"github.com/aq2208/goshop-api/internal/logging"
	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logging.Init(cfg.App.Name, cfg.App.LogFile)
	log := logging.New("app")

	// init database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		return nil, nil, err
	}
	cancel()

	log.Info("shop-api: starting up")

	// init redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, nil, err
	}

	// init rabbitmq. A dead broker must not keep the shop down: fall back
	// to the no-op producer and keep serving checkouts.
	var producer usecase.NotificationQueue
	var rabbitConn *amqp091.Connection
	if conn, err := amqp091.Dial(cfg.Rabbit.URL); err != nil {
		log.Warn("rabbitmq unavailable, notifications disabled", "err", err)
		producer = queue.NoopProducer{Log: log}
	} else if ch, err := conn.Channel(); err != nil {
		log.Warn("rabbitmq channel failed, notifications disabled", "err", err)
		_ = conn.Close()
		producer = queue.NoopProducer{Log: log}
	} else {
		p, err := queue.NewRabbitProducer(ch)
		if err != nil {
			return nil, nil, err
		}
		producer = p
		rabbitConn = conn
	}

	// infra
	productRepo := repo.NewMySQLProductRepo(db)
	cartRepo := repo.NewMySQLCartRepo(db)
	orderRepo := repo.NewMySQLOrderRepo(db)
	checkoutStore := repo.NewMySQLCheckoutStore(db)
	catalogCache := cache.NewRedisCatalogCache(rdb, cfg.Cache.TTL)
	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)

	// register kafka-listener
	if len(cfg.Kafka.Brokers) > 0 {
		setupKafkaListener(cfg, orderRepo)
	} else {
		log.Info("kafka brokers not configured, shipment listener disabled")
	}

	// usecases + handlers + router
	catalogUC := usecase.NewCatalog(productRepo, catalogCache, logging.New("catalog"))
	cartUC := usecase.NewCart(cartRepo, productRepo, logging.New("cart"))
	checkoutUC := usecase.NewCheckout(checkoutStore, idem, producer, catalogCache, logging.New("checkout"))
	ordersUC := usecase.NewOrders(orderRepo, logging.New("orders"))

	ph := http.NewProductHandler(catalogUC)
	ch := http.NewCartHandler(cartUC)
	oh := http.NewOrderHandler(checkoutUC, ordersUC)
	th := http.NewTokenHandler(cfg)
	auth := middleware.NewAuthz(cfg)
	router := http.NewRouter(ph, ch, oh, th, auth)

	cleanup := func() {
		_ = db.Close()
		_ = rdb.Close()
		if rabbitConn != nil {
			_ = rabbitConn.Close()
		}
	}

	return &App{Router: router}, cleanup, nil
}

func setupKafkaListener(cfg configs.Config, orderRepo *repo.MySQLOrderRepo) {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		panic(err)
	}

	log := logging.New("kafka")
	h := kafka.NewShipmentStatusHandler(orderRepo, log)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.Topic}, h.Handle, log)

	go func() {
		if err := consumer.Start(context.Background()); err != nil {
			panic(err)
		}
	}()
}
