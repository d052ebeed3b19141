package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockSense/pkg/config"
	xhttp "StockSense/pkg/http"
	pkgkafka "StockSense/pkg/kafka"
	applogger "StockSense/pkg/logger"
	"StockSense/pkg/queue"
)

// Queue is the background job queue run by the app.
type Queue interface {
	Start() error
	Stop(ctx context.Context) error
}

// Pruner is run periodically while the app is up.
type Pruner interface {
	PruneLimiter(maxIdle time.Duration) int
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	httpServer *xhttp.Server
	queue      Queue
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	closers    []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, logger *applogger.Logger, handler xhttp.Handler, q Queue) *App {
	return &App{cfg: cfg, logger: logger, handler: handler, queue: q}
}

// SetConsumer enables the Kafka consumer with the given topic handlers.
func (a *App) SetConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) {
	a.consumer = c
	a.handlers = handlers
}

// AddCloser registers a resource closed on shutdown, in reverse order of registration.
func (a *App) AddCloser(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Start brings up the queue, the consumer and the HTTP server.
func (a *App) Start() error {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(a.cfg.Server.SlowRequest),
		xhttp.WithCORS(!a.cfg.Server.DisableCORS, a.cfg.Server.CORSOrigins...),
		xhttp.WithLogger(a.logger),
	}
	a.httpServer = xhttp.NewServer(a.handler, opts...)

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return err
		}
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
		for _, h := range a.handlers {
			a.logger.Info("kafka consumer started", applogger.String("topic", h.Topic()))
		}
	}

	return a.httpServer.Start()
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(); err != nil {
		a.logger.Error("app start failed", applogger.Error(err))
		_ = a.shutdown(context.Background())
		return err
	}

	if p, ok := a.handler.(Pruner); ok {
		go a.prune(ctx, p)
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) prune(ctx context.Context, p Pruner) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := p.PruneLimiter(10 * time.Minute); n > 0 {
				a.logger.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown stops intake first (HTTP, queue, consumer) and then closes clients.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.logger.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// flush aggregated logs while the producer is still open
	a.logger.RemoveCollector()

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

var _ Queue = (*queue.RedisQueue)(nil)
