// Command authkit runs the user-authentication and session-management
// service with its HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradingagents/authkit/api"
	"github.com/tradingagents/authkit/pkg/auth"
	"github.com/tradingagents/authkit/pkg/config"
	"github.com/tradingagents/authkit/pkg/logger"
)

// Version information (set by build process)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	listenAddr  = flag.String("listen", "", "Listen address (overrides configuration)")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("authkit %s (%s)\n", Version, GitCommit)
		return
	}

	log := logger.NewConsoleLogger(*logLevel)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal("failed to load configuration", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	service, err := auth.NewService(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize auth service", err)
	}

	server := api.NewServer(service, cfg, log)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	go func() {
		log.Info("auth API listening", map[string]interface{}{"addr": cfg.ListenAddr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", err)
		}
	}()

	// Periodic expired-session sweep.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := service.CleanupExpiredSessions(); err != nil {
					log.Warn("session cleanup failed", map[string]interface{}{"error": err.Error()})
				}
			case <-sweepDone:
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(sweepDone)

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", err)
	}
}
