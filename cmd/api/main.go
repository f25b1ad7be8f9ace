package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/novel-roleplay/backend/internal/config"
	"github.com/zhouzirui/novel-roleplay/backend/internal/handler"
	"github.com/zhouzirui/novel-roleplay/backend/internal/service/novelapi"
	"github.com/zhouzirui/novel-roleplay/backend/internal/service/roleplay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	client := novelapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	log.Printf("novel backend: %s (timeout %s)", cfg.Backend.BaseURL, cfg.Backend.Timeout)
	log.Printf("对白节奏: 首条 %s, 后续 %s, 连续自动推进上限 %d",
		cfg.Pacing.FirstDelay, cfg.Pacing.NextDelay, cfg.Pacing.AdvanceCeiling)

	viewers := roleplay.NewService(client, cfg.Pacing)

	router := handler.NewRouter(client, viewers)

	startServer(ctx, cfg.Server, router, viewers.Shutdown)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, onShutdown func()) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// 关闭所有查看器，使 SSE 与 WebSocket 连接随之结束。
	srv.RegisterOnShutdown(onShutdown)

	log.Printf("Roleplay viewer listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
