package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minichat/internal/auth"
	"minichat/internal/config"
	"minichat/internal/db"
	"minichat/internal/docstore"
	grpcserver "minichat/internal/grpc"
	"minichat/internal/middleware"
	"minichat/internal/observability"
	"minichat/internal/rabbitmq"
	"minichat/internal/repositories"
	"minichat/internal/server"
	"minichat/internal/storage"
	"minichat/internal/telemetry"
	"minichat/internal/ws"
)

const serviceName = "minichat"

type repositoriesSet interface {
	repositories.UserRepository
	repositories.AccountRepository
	repositories.ChatRepository
	repositories.MessageRepository
}

type backend struct {
	repos  repositoriesSet
	bucket storage.Bucket
	check  grpcserver.Checker
	close  func()
}

func main() {
	cfg := config.LoadServer()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	status := rabbitmq.Describe(publisher)
	log.Printf("event publisher mode=%s reason=%q", status.Mode, status.Reason)
	events := observability.NewEvents(publisher)
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRouting, serviceName, cfg.Environment)

	store, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open store driver=%s: %v", cfg.StoreDriver, err)
	}
	defer store.close()

	var sso *auth.JWTManager
	if cfg.SSOSecret != "" {
		sso = auth.NewJWTManager(cfg.SSOSecret, 10*time.Minute)
	}
	authService := auth.NewService(store.repos, auth.NewJWTManager(cfg.JWTSecret, cfg.AuthTokenTTL), sso)
	docs := docstore.New(store.repos, store.repos, store.repos, events)

	limiter := middleware.NewLimiterStore(cfg.AuthRatePerMinute, cfg.AuthRateBurst, time.Minute)
	defer limiter.Stop()
	hub := ws.NewHub(events)

	router := server.NewRouter(server.Deps{
		Auth:          authService,
		Store:         docs,
		Bucket:        store.bucket,
		Hub:           hub,
		Audit:         audit,
		Limiter:       limiter,
		ServiceName:   serviceName,
		PublicBaseURL: cfg.PublicBaseURL,
		MaxUploadSize: cfg.MaxUploadSize,
		CORSOrigins:   cfg.CORSOrigins,
		DebugRoutes:   cfg.DebugRoutes,
	})

	health := grpcserver.NewHealthServer(store.check, 15*time.Second)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen grpc addr=%s: %v", cfg.GRPCAddr, err)
	}
	go func() {
		if err := health.Serve(lis); err != nil {
			log.Printf("grpc health server stopped: %v", err)
		}
	}()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Printf("minichat listening port=%s store=%s", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	health.GracefulStop()
}

func openBackend(ctx context.Context, cfg config.Server) (*backend, error) {
	switch cfg.StoreDriver {
	case "postgres":
		database, err := db.Connect(cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		bucket, err := storage.NewDiskBucket(cfg.MediaDir)
		if err != nil {
			database.Close()
			return nil, err
		}
		return &backend{
			repos:  repositories.NewPostgres(database),
			bucket: bucket,
			check:  database.PingContext,
			close:  func() { database.Close() },
		}, nil
	case "mongo":
		client, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		return &backend{
			repos:  repositories.NewMongoStore(client),
			bucket: storage.NewGridFSBucket(client.MediaBucket()),
			check:  client.Ping,
			close:  func() { _ = client.Close(context.Background()) },
		}, nil
	case "memory":
		bucket, err := storage.NewDiskBucket(cfg.MediaDir)
		if err != nil {
			return nil, err
		}
		log.Printf("using in-memory store; data is lost on restart")
		return &backend{repos: repositories.NewMemory(), bucket: bucket, close: func() {}}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
