package api

import (
	"net/http"
	"time"

	domsvc "StockSense/internal/domain/service"
	"StockSense/internal/service/metrics"
	"StockSense/internal/service/ratelimit"
	"StockSense/internal/usecase"
	xhttp "StockSense/pkg/http"
	applogger "StockSense/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Analysis    *usecase.AnalysisUseCase
	Scans       *usecase.ScanUseCase
	Preferences *usecase.PreferenceUseCase
	History     *usecase.HistoryUseCase
	Congress    domsvc.CongressFeed
}

// Option configures AnalysisHandler.
type Option func(*AnalysisHandler)

// WithLogger sets the handler logger.
func WithLogger(l *applogger.Logger) Option {
	return func(h *AnalysisHandler) { h.logger = l }
}

// WithRateLimit limits expensive endpoints per client IP. A burst <= 0 disables limiting.
func WithRateLimit(burst, perSecond float64) Option {
	return func(h *AnalysisHandler) {
		h.burst = burst
		h.refill = perSecond
	}
}

// WithStreamWriteTimeout bounds each websocket write.
func WithStreamWriteTimeout(d time.Duration) Option {
	return func(h *AnalysisHandler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// AnalysisHandler serves the analysis, scan, preference and congress endpoints.
type AnalysisHandler struct {
	svc          Services
	logger       *applogger.Logger
	rl           *ratelimit.Limiter
	burst        float64
	refill       float64
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

func NewAnalysisHandler(svc Services, opts ...Option) *AnalysisHandler {
	metrics.Register()
	h := &AnalysisHandler{
		svc:          svc,
		rl:           ratelimit.New(),
		burst:        10,
		refill:       1,
		writeTimeout: 10 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")

	g.GET("/analysis", h.Analyze, h.limit("analysis"))
	g.GET("/analysis/latest", h.Latest)
	g.GET("/analysis/history", h.History)
	g.GET("/analysis/ws", h.Stream, h.limit("stream"))

	g.POST("/scans", h.StartScan, h.limit("scans"))
	g.GET("/scans/:id", h.ScanStatus)
	g.DELETE("/scans/:id", h.ResetScan)

	g.GET("/preferences/:user/weights", h.Weights)
	g.PUT("/preferences/:user/weights", h.UpdateWeights)
	g.DELETE("/preferences/:user/weights", h.ResetWeights)

	g.GET("/congress", h.Congress, h.limit("congress"))
	g.GET("/classify", h.Classify)
}

// PruneLimiter drops idle rate limit buckets.
func (h *AnalysisHandler) PruneLimiter(maxIdle time.Duration) int {
	return h.rl.Prune(maxIdle)
}

func (h *AnalysisHandler) limit(endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if h.burst <= 0 || h.rl.Allow(c.RealIP()+":"+endpoint, h.burst, h.refill) {
				return next(c)
			}
			metrics.RateLimited.WithLabelValues(endpoint).Inc()
			h.warn("rate limited", applogger.String("endpoint", endpoint), applogger.String("remote", c.RealIP()))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
		}
	}
}

func observe(endpoint string) func() {
	start := time.Now()
	return func() {
		metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (h *AnalysisHandler) warn(msg string, fields ...applogger.Field) {
	if h.logger != nil {
		h.logger.Warn(msg, fields...)
	}
}

func (h *AnalysisHandler) debug(msg string, fields ...applogger.Field) {
	if h.logger != nil {
		h.logger.Debug(msg, fields...)
	}
}

var _ xhttp.Handler = (*AnalysisHandler)(nil)
