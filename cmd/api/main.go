package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contacts-api/internal/application/identity"
	"github.com/contacts-api/internal/config"
	"github.com/contacts-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/contacts-api/internal/infrastructure/jwt"
	redisinfra "github.com/contacts-api/internal/infrastructure/redis"
	s3infra "github.com/contacts-api/internal/infrastructure/s3"
	"github.com/contacts-api/internal/infrastructure/smtp"
	transporthttp "github.com/contacts-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	contactRepo := dynamo.NewContactRepo(dynamoClient, cfg.DynamoTables.Contacts)

	// Redis-backed identity cache in front of the users table.
	rdb := redisinfra.NewClient(cfg)
	identityCache := identity.NewCache(rdb, userRepo, cfg.CacheTTL)

	// S3 avatar store.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName, cfg.AWSRegion)

	// SMTP mailer; delivery runs off the request path.
	mailer := smtp.NewAsyncMailer(smtp.NewMailer(cfg))

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		UserRepo:    userRepo,
		ContactRepo: contactRepo,
		Identity:    identityCache,
		S3Store:     s3Store,
		Mailer:      mailer,
		JWTProvider: jwtProvider,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}
	log.Println("Server stopped")
}
