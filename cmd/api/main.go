package main

import (
	"context"
	"net/http"
	"os"

	"github.com/andresvelasquez/ganaderia-backend/api/routes"
	"github.com/andresvelasquez/ganaderia-backend/internal/auth"
	"github.com/andresvelasquez/ganaderia-backend/internal/breeds"
	"github.com/andresvelasquez/ganaderia-backend/internal/bulls"
	"github.com/andresvelasquez/ganaderia-backend/internal/invoices"
	"github.com/andresvelasquez/ganaderia-backend/internal/notifications"
	"github.com/andresvelasquez/ganaderia-backend/internal/payments"
	"github.com/andresvelasquez/ganaderia-backend/internal/users"
	epaycohook "github.com/andresvelasquez/ganaderia-backend/internal/webhooks/epayco"
	"github.com/andresvelasquez/ganaderia-backend/pkg/auth/session"
	"github.com/andresvelasquez/ganaderia-backend/pkg/config"
	"github.com/andresvelasquez/ganaderia-backend/pkg/db"
	"github.com/andresvelasquez/ganaderia-backend/pkg/epayco"
	"github.com/andresvelasquez/ganaderia-backend/pkg/instance"
	"github.com/andresvelasquez/ganaderia-backend/pkg/logger"
	"github.com/andresvelasquez/ganaderia-backend/pkg/migrate"
	"github.com/andresvelasquez/ganaderia-backend/pkg/outbox"
	"github.com/andresvelasquez/ganaderia-backend/pkg/redis"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	gateway, err := epayco.NewClient(cfg.Epayco)
	if err != nil {
		logg.Error(context.Background(), "failed to create epayco client", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	invoicesRepo := invoices.NewRepository(dbClient.DB())

	invoicesService, err := invoices.NewService(invoices.ServiceParams{
		DB:     dbClient,
		Repo:   invoicesRepo,
		Outbox: outboxService,
		Logger: logg,
		Config: cfg.Payments,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoices service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		DB:       dbClient,
		Repo:     payments.NewRepository(dbClient.DB()),
		Invoices: invoicesRepo,
		Gateway:  gateway,
		Outbox:   outboxService,
		Cache:    redisClient,
		Logger:   logg,
		Config:   cfg.Payments,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookService, err := epaycohook.NewService(epaycohook.ServiceParams{
		Payments: paymentsService,
		Dedupe:   redisClient,
		Logger:   logg,
		Epayco:   cfg.Epayco,
		Payment:  cfg.Payments,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	breedsRepo := breeds.NewRepository(dbClient.DB())
	breedsService, err := breeds.NewService(breedsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create breeds service", err)
		os.Exit(1)
	}

	bullsService, err := bulls.NewService(bulls.ServiceParams{
		Repo:   bulls.NewRepository(dbClient.DB()),
		Breeds: breedsRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bulls service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:               cfg,
			Logger:               logg,
			DB:                   dbClient,
			Redis:                redisClient,
			SessionManager:       sessionManager,
			AuthService:          authService,
			RegisterService:      registerService,
			PaymentsService:      paymentsService,
			InvoicesService:      invoicesService,
			BreedsService:        breedsService,
			BullsService:         bullsService,
			NotificationsService: notificationsService,
			EpaycoWebhook:        webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
