// Command demo runs a small order service instrumented with the SDK:
// every request produces a SERVER span, payment and inventory run as
// child spans, and counters plus logs flow through the same exporter.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	pulsewatch "github.com/pulsewatch/pulsewatch-go"
	"github.com/pulsewatch/pulsewatch-go/config"
)

func main() {
	port := flag.String("port", "8090", "Listen port")
	configPath := flag.String("config", config.DefaultFile, "Config file path")
	endpoint := flag.String("endpoint", "", "Override the ingestion endpoint")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.ServiceName == "unknown-service" {
		cfg.ServiceName = "order-service"
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}

	sdk, err := pulsewatch.Init(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(sdk.Middleware())

	newOrderService(sdk).register(router)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer := sdk.Gatherer(); gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	srv := &http.Server{
		Addr:    ":" + *port,
		Handler: router,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	log.Printf("order-service listening on :%s, exporting to %s", *port, cfg.Endpoint)

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		sdk.Shutdown(ctx)
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
