package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-attribution/internal/config"
	"github.com/xavierca1/ligue-attribution/internal/infra/database"
	"github.com/xavierca1/ligue-attribution/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-attribution/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-attribution/internal/infra/integration/googleads"
	"github.com/xavierca1/ligue-attribution/internal/infra/mail"
	"github.com/xavierca1/ligue-attribution/internal/infra/queue"
	"github.com/xavierca1/ligue-attribution/internal/usecase"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	// RabbitMQ fan-out is optional: the pipeline runs without it.
	var rabbitConn *amqp.Connection
	var events usecase.EventPublisherInterface
	if cfg.RabbitMQEnabled() {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQUser, cfg.RabbitMQPass, cfg.RabbitMQHost, cfg.RabbitMQPort)
		if err != nil {
			log.Printf("RabbitMQ unavailable, event fan-out disabled: %v", err)
		} else {
			defer rabbitMQ.Conn.Close()
			defer rabbitMQ.Ch.Close()
			rabbitConn = rabbitMQ.Conn
			events = queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
		}
	}

	var alerts usecase.AlertSenderInterface
	if cfg.MailEnabled() {
		alerts = mail.NewAlertSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailUser, cfg.AlertEmail)
	}

	// 1. Repositories
	leadRepo := database.NewLeadRepository(db)
	conversionRepo := database.NewConversionRepository(db)
	queueRepo := database.NewQueueRepository(db)

	// 2. Google Ads client
	tokens := googleads.NewTokenProvider(cfg.GoogleAdsClientID, cfg.GoogleAdsClientSecret, cfg.GoogleAdsRefreshToken)
	uploader := googleads.NewClient(
		cfg.GoogleAdsDeveloperToken,
		cfg.GoogleAdsCustomerID,
		cfg.GoogleAdsLoginCustomerID,
		cfg.ConversionActions(),
		tokens,
	)

	// 3. UseCases
	admission := usecase.NewQueueAdmissionUseCase(queueRepo)
	processWebhookUC := usecase.NewProcessWebhookUseCase(leadRepo, conversionRepo, admission)
	processQueueUC := usecase.NewProcessQueueUseCase(queueRepo, conversionRepo, uploader, events, alerts)

	// 4. Handlers
	webhookHandler := handlers.NewWebhookHandler(processWebhookUC, cfg.CRMWebhookSecret)
	queueHandler := handlers.NewQueueHandler(processQueueUC, cfg.ServiceSecret)
	healthHandler := handlers.NewHealthHandler(db, rabbitConn)

	// 5. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Post("/webhook/crm", webhookHandler.Handle)
	r.Post("/queue/process", queueHandler.HandleProcess)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	log.Printf("Attribution pipeline listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}
