package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tuttiservices/wholesale-backend/internal/auth"
	"github.com/tuttiservices/wholesale-backend/internal/catalog"
	"github.com/tuttiservices/wholesale-backend/internal/config"
	"github.com/tuttiservices/wholesale-backend/internal/httpx"
	kafkax "github.com/tuttiservices/wholesale-backend/internal/kafka"
	"github.com/tuttiservices/wholesale-backend/internal/orders"
	"github.com/tuttiservices/wholesale-backend/internal/postgres"
	"github.com/tuttiservices/wholesale-backend/internal/pricing"
	"github.com/tuttiservices/wholesale-backend/internal/redisx"
	"github.com/tuttiservices/wholesale-backend/internal/uploads"
	"github.com/tuttiservices/wholesale-backend/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	listingCache := &redisx.ProductCache{R: rdb}

	created := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	created.Start(ctx)
	statusChanged := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	statusChanged.Start(ctx)

	store, err := uploads.New(cfg.UploadDir)
	if err != nil {
		log.Fatalf("upload dir: %v", err)
	}

	catalogRepo := &catalog.Repo{DB: db}
	userRepo := &users.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	engine := &pricing.Engine{Promos: catalogRepo}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, cfg.ServiceName)
	hasher := auth.NewHasher()
	authSvc := &auth.Service{Users: userRepo, Tokens: tokens, Hasher: hasher}

	orderSvc := &orders.Service{
		Store:         orderRepo,
		Catalog:       catalogRepo,
		Users:         userRepo,
		Pricer:        engine,
		Created:       created,
		StatusChanged: statusChanged,
		ServiceName:   cfg.ServiceName,
	}

	api := &httpx.API{
		Authn:      &httpx.Authenticator{Tokens: tokens, Users: userRepo},
		Auth:       &httpx.AuthHandler{Service: authSvc},
		Catalog:    &httpx.CatalogHandler{Repo: catalogRepo, Pricer: engine, Cache: listingCache},
		Promotions: &httpx.PromotionsHandler{Repo: catalogRepo, Cache: listingCache},
		Users:      &httpx.UsersHandler{Repo: userRepo, Hasher: hasher},
		Orders:     &httpx.OrdersHandler{Service: orderSvc},
		Uploads:    &httpx.UploadsHandler{Storage: store},
	}

	router := httpx.NewRouter()
	api.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)

	// Close the inboxes so the producer loops flush what is buffered.
	created.Close()
	statusChanged.Close()
	created.WaitClosed()
	statusChanged.WaitClosed()
}
