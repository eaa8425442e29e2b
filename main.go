package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-service/controllers"
	"order-service/database"
	"order-service/kafka"
	"order-service/logger"
	"order-service/middleware"
	"order-service/models"
	awspkg "order-service/pkg/aws"
	"order-service/repository"
	"order-service/routes"
	"order-service/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger := logger.Initialize(cfg.Environment)
	defer zapLogger.Sync()

	if err := database.ConnectMongo(cfg.MongoURL, cfg.MongoDB); err != nil {
		zapLogger.Fatal("mongo connection failed", zap.Error(err))
	}
	defer database.CloseMongo()

	if err := database.ConnectPostgres(cfg.PostgresDSN(), zapLogger, &models.Payment{}); err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer database.ClosePostgres()

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()

	var snsClient awspkg.SNSPublisher
	if cfg.SNSTopicArn != "" {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			zapLogger.Fatal("aws config failed", zap.Error(err))
		}
		snsClient = awspkg.NewSNSClient(awsCfg)
	}

	var stockProducer *kafka.StockProducer
	if len(cfg.KafkaBrokers) > 0 {
		stockProducer = kafka.NewStockProducer(cfg.KafkaBrokers, cfg.KafkaTopic, zapLogger)
		defer stockProducer.Close()
	}

	orderRepo := repository.NewMongoOrderRepository(database.Mongo)
	productRepo := repository.NewMongoProductRepository(database.Mongo)
	couponRepo := repository.NewMongoCouponRepository(database.Mongo)
	cartRepo := repository.NewRedisCartRepository(redisClient, cfg.CartTTL)
	paymentRepo := repository.NewGormPaymentRepository(database.Postgres)

	gateway := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey, cfg.StripeSuccessURL, cfg.StripeCancelURL)

	couponService := services.NewCouponService(couponRepo, zapLogger)
	inventoryService := services.NewInventoryService(productRepo, zapLogger)
	cartService := services.NewCartService(cartRepo, productRepo, zapLogger)
	paymentService := services.NewPaymentService(orderRepo, productRepo, paymentRepo, gateway, snsClient, cfg.SNSTopicArn, cfg.Currency, zapLogger)

	orderService := services.NewOrderService(services.OrderServiceDeps{
		Orders:               orderRepo,
		Products:             productRepo,
		Coupons:              couponRepo,
		Carts:                cartRepo,
		Payments:             paymentRepo,
		CouponService:        couponService,
		Inventory:            inventoryService,
		Gateway:              gateway,
		StockPublisher:       stockPublisherOrNil(stockProducer),
		SNS:                  snsClient,
		SNSTopicArn:          cfg.SNSTopicArn,
		AllowCancelDelivered: cfg.AllowCancelDelivered,
		Logger:               zapLogger,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.Metrics())

	orderController := controllers.NewOrderController(orderService, paymentService)
	cartController := controllers.NewCartController(cartService)
	webhookController := controllers.NewWebhookController(paymentService)
	routes.Register(router, orderController, cartController, webhookController)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zapLogger.Info("order service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("shutdown error", zap.Error(err))
	}
}

// stockPublisherOrNil keeps the interface nil when no producer is configured,
// so the service's nil check short-circuits instead of hitting a typed nil.
func stockPublisherOrNil(p *kafka.StockProducer) services.StockPublisher {
	if p == nil {
		return nil
	}
	return p
}
