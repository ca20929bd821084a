package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"tunewave.org/internal/auth"
	"tunewave.org/internal/config"
	"tunewave.org/internal/httpapi"
	"tunewave.org/internal/obs"
	"tunewave.org/internal/store/pg"
)

var (
	version = "0.4.1"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	obs.Init()
	obs.InitBuildInfo(version, commit)

	store, err := pg.Open(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	tokens, err := auth.NewTokenManager(
		cfg.Auth.AccessSecret,
		cfg.Auth.RefreshSecret,
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
		auth.WithIssuer(cfg.Auth.Issuer),
	)
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}
	svc, err := auth.NewService(store, tokens, auth.WithRefreshRotation(cfg.Auth.RotateRefresh))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	probe := httpapi.ReadyProbe{DB: store.DB()}
	api := httpapi.New(httpapi.Options{
		Version:       version,
		ReadyProbe:    probe,
		Auth:          svc,
		CookieSecure:  cfg.Env != "local",
		RatePerSecond: cfg.Limits.RatePerSecond,
		RateBurst:     cfg.Limits.RateBurst,
		MaxBodyBytes:  cfg.Limits.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting tunewave-api %s on %s (env=%s)", version, srv.Addr, cfg.Env)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Optional gRPC health endpoint for orchestrators that probe over gRPC.
	var grpcSrv *grpc.Server
	if addr := cfg.GRPC.Addr(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcSrv, httpapi.NewGRPCServer(probe))
		log.Printf("Starting gRPC health endpoint on %s", addr)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	log.Println("Stopped")
}
