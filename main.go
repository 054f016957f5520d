// File: tourbook/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourbook/config"
	"tourbook/cron"
	"tourbook/database"
	bookingRepoPkg "tourbook/database/repository/booking"
	tourRepoPkg "tourbook/database/repository/tour"
	"tourbook/handlers"
	"tourbook/middleware"
	"tourbook/routes"
	"tourbook/services/booking"
	"tourbook/services/notification"
	"tourbook/services/payment"
	"tourbook/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.Default())

	// repositories.
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	tourRepo := tourRepoPkg.NewMongoTourRepo(utils.GetCacheClient())

	// payment gateways.
	gateways := payment.NewRegistry(
		payment.NewVNPayGateway(
			config.AppConfig.VNPayTmnCode,
			config.AppConfig.VNPayHashSecret,
			config.AppConfig.VNPayPayURL,
			config.AppConfig.VNPayReturnURL,
			logger,
		),
		payment.NewMomoGateway(
			config.AppConfig.MomoPartnerCode,
			config.AppConfig.MomoAccessKey,
			config.AppConfig.MomoSecretKey,
			config.AppConfig.MomoEndpoint,
			config.AppConfig.MomoRedirectURL,
			config.AppConfig.MomoIPNURL,
			logger,
		),
	)

	// notification dispatch through the asynq queue.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()
	dispatcher := notification.NewAsynqDispatcher(asynqClient, logger)

	// services.
	bookingService := &booking.DefaultBookingService{
		Repo:     bookingRepo,
		Tours:    tourRepo,
		Gateways: gateways,
		Notifier: dispatcher,
		Window:   config.PaymentWindow(),
		Logger:   logger,
	}

	bookingHandler := handlers.NewBookingHandler(bookingService, config.PaymentWindow(), logger)

	// Register routes.
	routes.RegisterRoutes(router, bookingHandler)

	// Background workers: invoice delivery and the expiry sweep.
	cron.InitInvoiceWorker(&notification.LogMailer{Logger: logger})
	cron.InitExpirySweep(bookingService, config.ExpirySweepInterval())

	utils.StartHealthMonitor([]*redis.Client{utils.GetCacheClient()}, database.MongoClient)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
