package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/UdhaarLedger/internal/api"
	"github.com/honeynil/UdhaarLedger/internal/config"
	"github.com/honeynil/UdhaarLedger/internal/handler"
	"github.com/honeynil/UdhaarLedger/internal/infrastructure/auth"
	"github.com/honeynil/UdhaarLedger/internal/infrastructure/kafka"
	"github.com/honeynil/UdhaarLedger/internal/infrastructure/redis"
	"github.com/honeynil/UdhaarLedger/internal/observability"
	"github.com/honeynil/UdhaarLedger/internal/realtime"
	"github.com/honeynil/UdhaarLedger/internal/repository"
	"github.com/honeynil/UdhaarLedger/internal/repository/memory"
	core "github.com/honeynil/UdhaarLedger/internal/repository/postgres"
	service "github.com/honeynil/UdhaarLedger/internal/services"
	_ "github.com/lib/pq"
)

type repositories struct {
	users        repository.UserRepository
	shops        repository.ShopRepository
	products     repository.ProductRepository
	orders       repository.OrderRepository
	transactions repository.TransactionRepository
}

func openStore(cfg *config.Config) (*repositories, func(), error) {
	if cfg.Storage == config.StorageMemory {
		store := memory.New()
		slog.Warn("using in-memory store, data is lost on restart")
		return &repositories{
			users:        store.Users(),
			shops:        store.Shops(),
			products:     store.Products(),
			orders:       store.Orders(),
			transactions: store.Transactions(),
		}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return &repositories{
		users:        core.NewPostgresUserRepository(db),
		shops:        core.NewPostgresShopRepository(db),
		products:     core.NewPostgresProductRepository(db),
		orders:       core.NewPostgresOrderRepository(db),
		transactions: core.NewPostgresTransactionRepository(db),
	}, func() { _ = db.Close() }, nil
}

func main() {
	cfg := config.Load()

	// Инициализируем логи, метрики, трейсы
	shutdownTracing := observability.Setup(cfg.ServiceName, cfg.MetricsAddr)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("tracer shutdown failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer closeStore()

	redisClient, err := redis.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	hub := realtime.NewHub()
	var publisher realtime.Publisher = hub
	if cfg.Notifier == config.NotifierKafka {
		producer := kafka.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
		publisher = kafka.NewBusPublisher(producer, cfg.KafkaNotifyTopic)

		// Каждому инстансу нужны все события для своих сессий
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaNotifyTopic, cfg.KafkaGroupID+"-"+uuid.NewString(), hub)
		go consumer.Consume(ctx)
		defer consumer.Close()
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	h := handler.NewHandler(
		service.NewAuthService(repos.users, repos.shops, redisClient, tokens),
		service.NewCatalogService(repos.shops, repos.products),
		service.NewOrderService(repos.users, repos.shops, repos.orders, redisClient, publisher),
		service.NewLedgerService(repos.users, repos.orders, repos.transactions, redisClient),
		hub,
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.SetupRouter(h, tokens, redisClient),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr, "storage", cfg.Storage, "notifier", cfg.Notifier)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}
