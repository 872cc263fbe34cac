package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Exporter serves /metrics and /health on a dedicated port.
type Exporter struct {
	server  *http.Server
	metrics *Metrics
	logger  *logrus.Logger
	port    string
}

func NewExporter(port string, logger *logrus.Logger) (*Exporter, error) {
	metrics := New()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Exporter{
		server:  &http.Server{Addr: ":" + port, Handler: mux},
		metrics: metrics,
		logger:  logger,
		port:    port,
	}, nil
}

// Start runs the exporter until the context is cancelled.
func (e *Exporter) Start(ctx context.Context) error {
	e.logger.Infof("metrics available at http://localhost:%s/metrics", e.port)

	go func() {
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Errorf("metrics exporter failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e.logger.Info("shutting down metrics exporter")
	return e.server.Shutdown(shutdownCtx)
}

// GetMetrics returns the collector set shared with the rest of the daemon.
func (e *Exporter) GetMetrics() *Metrics {
	return e.metrics
}
