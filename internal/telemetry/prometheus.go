package telemetry

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prometheusShutdownTimeout = 5 * time.Second

// RunPrometheusServer serves /metrics on the configured port until ctx is done.
func RunPrometheusServer(ctx context.Context, config *Config) error {
	if config == nil || config.PrometheusPort == 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(config.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: prometheusShutdownTimeout,
	}

	logger := logging.NewLogger("prometheus")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), prometheusShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Failed to shut down metrics server")
		}
	}()

	logger.Info().Str("addr", server.Addr).Msg("Serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
