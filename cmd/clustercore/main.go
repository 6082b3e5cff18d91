// Package main is a reference host process for the clustercore library: it
// loads configuration, starts structured logging, and exposes the
// Prometheus metrics endpoint. Wiring a concrete facade.ClusterFacade (the
// binary cluster protocol transport) is left to the embedding application;
// this binary is useful on its own only for validating a config file and
// watching RefresherCore/ObserverCore metrics once a facade is plugged in.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitaliisemenov/clustercore/internal/config"
	"github.com/vitaliisemenov/clustercore/pkg/logger"
)

const (
	serviceName    = "clustercore"
	serviceVersion = "0.1.0"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	showVersion := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", serviceName, serviceVersion)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	sanitized := config.NewDefaultConfigSanitizer().Sanitize(cfg)
	log.Info("starting clustercore", "service", serviceName, "version", serviceVersion, "buckets", len(sanitized.Buckets), "nodes", sanitized.Nodes)

	if !cfg.Metrics.Enabled {
		log.Info("metrics disabled, exiting after config validation")
		return
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("metrics server starting", "addr", server.Addr, "path", cfg.Metrics.Path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("metrics server forced shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
