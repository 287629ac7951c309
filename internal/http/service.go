package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/tuanvumaihuynh/shop-simulator/internal/apperr"
	"github.com/tuanvumaihuynh/shop-simulator/internal/config"
	"github.com/tuanvumaihuynh/shop-simulator/internal/event"
	"github.com/tuanvumaihuynh/shop-simulator/internal/http/apierr"
	"github.com/tuanvumaihuynh/shop-simulator/internal/http/middleware"
	"github.com/tuanvumaihuynh/shop-simulator/internal/http/swagger"
	"github.com/tuanvumaihuynh/shop-simulator/internal/metric"
	"github.com/tuanvumaihuynh/shop-simulator/internal/service"
)

var tracer = otel.Tracer("internal/http")

// Subscriber registers handlers for in-process catalog events.
type Subscriber interface {
	Subscribe(topic string, handler event.HandlerFunc) event.UnsubscribeFunc
}

// Service represents the HTTP service.
type Service struct {
	cfg      config.HTTP
	logger   *slog.Logger
	metrics  *metric.Metrics
	gatherer prometheus.Gatherer

	shopSvc service.ShopService
	events  Subscriber
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	log *slog.Logger,
	metrics *metric.Metrics,
	gatherer prometheus.Gatherer,
	shopSvc service.ShopService,
	events Subscriber,
) *Service {
	return &Service{
		cfg:      cfg,
		logger:   log.With(slog.String("service", "http")),
		metrics:  metrics,
		gatherer: gatherer,
		shopSvc:  shopSvc,
		events:   events,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	return s.RunWithServer(ctx, s.Router())
}

// Router builds the handler tree served by Run.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		swagger.Register(r)
	}

	s.RegisterHandlers(r)

	return r
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	return s.Serve(ctx, ln, handler), nil
}

// Serve serves handler on ln until the returned cleanup is called. Request
// contexts are cancelled when shutdown starts so long-lived streams end.
func (s *Service) Serve(ctx context.Context, ln net.Listener, handler http.Handler) CleanupFunc {
	baseCtx, cancelBase := context.WithCancel(ctx)

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return baseCtx
		},
	}
	srv.RegisterOnShutdown(cancelBase)

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.ErrorContext(ctx, "http server stopped unexpectedly", slog.Any("error", err))
		}
	}()

	return func(ctx context.Context) error {
		defer cancelBase()

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(s.cfg.CorsOrigins),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	h := s.newHandler()

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.handleResponseError(w, r, apperr.RouteNotFoundErr)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/simulations/customers", h.openForCustomers)
		r.Post("/simulations/replenishments", h.reaccount)
		r.Get("/products", h.listProducts)
		r.Get("/products/{name}", h.getProduct)
		r.Get("/balance", h.getBalance)
		r.Get("/events", h.streamEvents)
	})

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}

func (s *Service) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WarnContext(r.Context(), "error encoding response", slog.Any("error", err))
	}
}

type handler struct {
	*simulationHandler
	*catalogHandler
}

func (s *Service) newHandler() *handler {
	return &handler{
		simulationHandler: newSimulationHandler(s, s.shopSvc),
		catalogHandler:    newCatalogHandler(s, s.shopSvc, s.events),
	}
}
