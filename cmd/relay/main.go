// cmd/relay/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/mcstatus-relay/internal/bus"
	"github.com/tamzrod/mcstatus-relay/internal/config"
	"github.com/tamzrod/mcstatus-relay/internal/gateway"
	"github.com/tamzrod/mcstatus-relay/internal/logging"
	"github.com/tamzrod/mcstatus-relay/internal/relay"
	"github.com/tamzrod/mcstatus-relay/internal/statusapi"
)

const usage = "usage: relay [-ping host:port [-bedrock]] <config.yaml>"

var (
	pingFlag    = flag.String("ping", "", "Look up one server, print the result and exit")
	bedrockFlag = flag.Bool("bedrock", false, "Use the Bedrock variant with -ping")
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal(usage)
	}

	cfgPath := flag.Arg(0)

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logCloser, err := logging.Setup(cfg.Relay.Log)
	if err != nil {
		log.Fatalf("logging setup failed: %v", err)
	}
	defer logCloser.Close()

	api, err := statusapi.New(statusapi.Config{
		BaseURL:   cfg.Relay.StatusAPI.BaseURL,
		UserAgent: cfg.Relay.StatusAPI.UserAgent,
		Timeout:   time.Duration(cfg.Relay.StatusAPI.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("status API client failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *pingFlag != "" {
		code := runOnce(ctx, api, *pingFlag, *bedrockFlag, os.Stdout, os.Stderr)
		stop()
		logCloser.Close()
		os.Exit(code)
	}

	if err := run(ctx, cfg.Relay, api); err != nil {
		log.Fatalf("relay failed: %v", err)
	}
	slog.Info("Relay stopped")
}

// run wires queue -> relay -> broadcaster -> gateway and blocks until ctx
// is done or a listener fails.
func run(ctx context.Context, rc config.RelayConfig, api *statusapi.Client) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := relay.NewMetrics(reg)

	queue := bus.NewQueue(rc.QueueSize)
	bc := bus.NewBroadcaster()
	bc.OnSubscriberCount(metrics.SetSubscribers)

	rl, err := relay.New(api, bc, metrics)
	if err != nil {
		return err
	}

	gw := gateway.New(queue, bc, gateway.Config{
		SubscriberBuffer: rc.SubscriberBuffer,
		PingsPerSecond:   rc.Gateway.PingsPerSecond,
		Burst:            rc.Gateway.Burst,
	})

	g, gctx := errgroup.WithContext(ctx)

	// The broadcaster outlives the relay so in-flight lookups can still emit.
	// On cancel it flushes everything already published before closing.
	bcCtx, bcCancel := context.WithCancel(context.Background())
	defer bcCancel()
	g.Go(func() error {
		bc.Run(bcCtx)
		return nil
	})
	g.Go(func() error {
		defer bcCancel()
		rl.Run(gctx, queue.Requests())
		return nil
	})
	g.Go(func() error {
		return serve(gctx, "gateway", rc.Gateway.Listen, gw.Routes())
	})
	if rc.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		g.Go(func() error {
			return serve(gctx, "metrics", rc.Metrics.Listen, mux)
		})
	}

	slog.Info("Relay ready",
		"gateway", rc.Gateway.Listen,
		"metrics", rc.Metrics.Listen,
		"status_api", rc.StatusAPI.BaseURL,
	)

	return g.Wait()
}

// serve runs an HTTP server until ctx is done.
func serve(ctx context.Context, name, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s listener: %w", name, err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("Shutting down listener", "name", name)
		return srv.Shutdown(shutdownCtx)
	}
}
