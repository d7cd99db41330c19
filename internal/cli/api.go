package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rawblock/solsecurity/internal/alerts"
	"github.com/rawblock/solsecurity/internal/api"
	"github.com/rawblock/solsecurity/internal/logger"
	"github.com/rawblock/solsecurity/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the HTTP API, alert stream and wallet watcher",
	Long: `Serve the wallet analyses over HTTP under /api/v1, push poisoning
alerts to WebSocket subscribers on /api/v1/stream, and expose Prometheus
metrics on /metrics.

Wallets listed in WATCH_WALLETS are re-analyzed every WATCH_INTERVAL and
new findings are pushed to the stream.`,
	RunE: runAPI,
}

func runAPI(cmd *cobra.Command, args []string) error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	wsHub := api.NewHub(log)
	go wsHub.Run()

	am := alerts.NewManager(func(a alerts.Alert) { wsHub.BroadcastJSON(a) }, cfg.Alerts.History, log)
	for i, url := range cfg.Alerts.WebhookURLs {
		am.RegisterWebhook(fmt.Sprintf("webhook-%d", i+1), url, cfg.Alerts.WebhookMinSeverity, nil)
	}
	defer am.Wait()

	limiter := api.NewRateLimiter(cfg.API.RatePerMinute, cfg.API.RateBurst)
	defer limiter.Stop()

	poller := watcher.NewPoller(eng.svc, am, cfg.Watch, log)
	go poller.Run(ctx)

	r := api.SetupRouter(eng.svc, wsHub, cfg.API, api.RouterOptions{
		Alerts:   am,
		Metrics:  eng.metrics,
		Gatherer: eng.registry,
		Limiter:  limiter,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.API.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.API.Port).Str("strategy", eng.svc.Strategy()).Msg("Solsecurity API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
