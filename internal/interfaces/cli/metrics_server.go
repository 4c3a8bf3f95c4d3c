package cli

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/turtacn/LexCite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LexCite/pkg/errors"
)

const metricsShutdownTimeout = 5 * time.Second

// metricsServer exposes the run registry on /metrics while a build runs.
type metricsServer struct {
	srv    *http.Server
	addr   string
	done   chan struct{}
	logger logging.Logger
}

// startMetricsServer binds addr before returning, so a bad address fails
// the command instead of a background goroutine.
func startMetricsServer(addr string, handler http.Handler, logger logging.Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeInternal, "failed to listen on metrics address %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	m := &metricsServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		addr:   ln.Addr().String(),
		done:   make(chan struct{}),
		logger: logging.OrNop(logger),
	}
	go func() {
		defer close(m.done)
		if err := m.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.logger.Error("metrics server error", logging.Err(err))
		}
	}()

	m.logger.Info("metrics endpoint listening", logging.String("addr", m.addr))
	return m, nil
}

// Addr returns the bound address, useful when addr asked for port 0.
func (m *metricsServer) Addr() string { return m.addr }

// Stop shuts the server down and waits for the serve loop to exit.
func (m *metricsServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "metrics server shutdown failed")
	}
	<-m.done
	return nil
}
