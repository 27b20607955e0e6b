package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/clawdash/gateway-go/pkg/config"
	"github.com/clawdash/gateway-go/pkg/gateway"
	protolog "github.com/clawdash/gateway-go/pkg/log"
	"github.com/clawdash/gateway-go/pkg/metrics"
	"github.com/clawdash/gateway-go/pkg/wire"
)

// session is a connected client plus the logging and metrics around it.
type session struct {
	client   *gateway.Client
	logger   *slog.Logger
	logOut   *swapWriter
	protoLog *protolog.FileLogger
	server   *http.Server
	hello    chan *wire.HelloOK
}

// openSession builds a client from the layered configuration, starts
// connecting and waits for the first hello. configure may add callbacks.
func openSession(ctx context.Context, cmd *cobra.Command, g *globalOptions, configure func(*gateway.Options)) (*session, error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	s := &session{
		logOut: &swapWriter{w: cmd.ErrOrStderr()},
		hello:  make(chan *wire.HelloOK, 1),
	}
	s.logger = slog.New(slog.NewTextHandler(s.logOut, &slog.HandlerOptions{Level: level}))

	opts := cfg.Options()
	opts.Logger = s.logger

	if cfg.Logging.ProtocolLog != "" {
		s.protoLog, err = protolog.NewFileLogger(cfg.Logging.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open protocol log: %w", err)
		}
		opts.ProtocolLogger = s.protoLog
	}

	reg := prometheus.NewRegistry()
	opts.Metrics = metrics.New(reg)

	if configure != nil {
		configure(&opts)
	}
	store := g.stateStore()
	onHello := opts.OnHello
	opts.OnHello = func(h *wire.HelloOK) {
		if onHello != nil {
			onHello(h)
		}
		if store != nil {
			if err := store.RecordHello(cfg.Gateway.URL, h); err != nil {
				s.logger.Warn("failed to record gateway", "path", store.Path(), "error", err)
			}
		}
		select {
		case s.hello <- h:
		default:
		}
	}

	s.client, err = gateway.New(opts)
	if err != nil {
		s.close()
		return nil, err
	}

	if cfg.Metrics.Addr != "" {
		if err := s.serveMetrics(cfg.Metrics.Addr, reg); err != nil {
			s.close()
			return nil, err
		}
	}

	if err := s.client.Connect(); err != nil {
		s.close()
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.connectTimeout)
	defer cancel()
	if err := s.waitReady(waitCtx); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// waitReady blocks until the first hello arrives.
func (s *session) waitReady(ctx context.Context) error {
	select {
	case <-s.hello:
		return nil
	case <-ctx.Done():
		select {
		case <-s.hello:
			return nil
		default:
		}
		if err := s.client.LastError(); err != nil {
			return fmt.Errorf("gateway %s not reachable: %w", s.client.URL(), err)
		}
		return fmt.Errorf("gateway %s not reachable: %w", s.client.URL(), ctx.Err())
	}
}

// serveMetrics exposes /metrics and /healthz.
func (s *session) serveMetrics(addr string, reg *prometheus.Registry) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if s.client.Connected() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s.client.State().String()))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(s.client.State().String()))
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
	s.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (s *session) close() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = s.server.Shutdown(ctx)
		cancel()
	}
	if s.protoLog != nil {
		if err := s.protoLog.Close(); err != nil {
			s.logger.Warn("failed to close protocol log", "error", err)
		}
	}
}

// swapWriter lets the shell route logs through readline after the session
// is open.
type swapWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *swapWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}
