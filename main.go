package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skirmish/server"
)

// skirmish：竞技场客户端的权威 WebSocket 会话服务
func main() {
	var configPath, addr string
	flag.StringVar(&configPath, "config", "", "path to a TOML config file")
	flag.StringVar(&addr, "addr", "", "listen address, overrides the config, e.g. :10001")
	flag.Parse()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	session := server.NewSession(cfg.Session)
	go session.Run(ctx)

	mux := http.NewServeMux()
	server.Routes(mux, session, cfg)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		server.Log.Infof("skirmish listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("shutting down")

	// 先关闭所有玩家，客户端收到 GOING_AWAY 而不是直接断线
	stop()
	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		server.Log.Warnw("http shutdown", "err", err)
	}
}
