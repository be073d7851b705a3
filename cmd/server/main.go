package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"

	"tictactoe-history/internal/config"
	"tictactoe-history/internal/server"
	"tictactoe-history/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (environment only when empty)")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: conf.Level()}))

	if err := run(logger, conf); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "main")

	// Create stores
	sessions := store.NewSessionStore(conf.Shards)
	outcomes := store.NewOutcomeStore(conf.Shards)

	ticTacToeServer := server.NewTicTacToeServer(logger, sessions, outcomes, conf.StreamBuffer)

	// Create gRPC server
	grpcServer := grpc.NewServer()
	server.RegisterService(grpcServer, ticTacToeServer)

	grpcAddr := fmt.Sprintf(":%d", conf.GRPCPort)
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	errCh := make(chan error, 2)

	go func() {
		log.Info("gRPC server listening", "addr", grpcAddr)
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("failed to serve gRPC: %w", err)
		}
	}()

	// REST routes call the service in-process
	gwMux := runtime.NewServeMux()
	if err := server.RegisterGateway(gwMux, ticTacToeServer, logger); err != nil {
		return fmt.Errorf("failed to register gateway: %w", err)
	}

	httpMux := http.NewServeMux()

	// Health check endpoint
	httpMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Route API requests to the gateway, others to httpMux
	mainHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			gwMux.ServeHTTP(w, r)
		} else {
			httpMux.ServeHTTP(w, r)
		}
	})

	httpAddr := fmt.Sprintf(":%d", conf.HTTPPort)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           corsHandler(mainHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP/REST server listening", "addr", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("received signal, shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("HTTP shutdown failed", "error", shutdownErr)
	}
	grpcServer.GracefulStop()
	log.Info("servers stopped")

	return err
}

// corsHandler allows browser front ends served from other origins
func corsHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}
