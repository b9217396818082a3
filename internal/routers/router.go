package routers

import (
	"errors"
	"net/http"

	"github.com/Oniqq60/grant_tracker/internal/metrics"
	"github.com/Oniqq60/grant_tracker/internal/middleware"
	"github.com/Oniqq60/grant_tracker/internal/proof"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Dependencies struct {
	Proof    *proof.Handler
	Metrics  *metrics.Collectors
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
	// Middleware применяется снаружи стандартной цепочки, первый самый внешний
	Middleware []func(http.Handler) http.Handler
}

type Router struct {
	mux     *http.ServeMux
	handler http.Handler
}

func New(deps Dependencies) (*Router, error) {
	if deps.Proof == nil {
		return nil, errors.New("proof handler is required")
	}
	if deps.Metrics == nil {
		return nil, errors.New("metrics collectors are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	deps.Proof.RegisterHandlers(mux)
	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(deps.Gatherer))
	}

	chain := append([]func(http.Handler) http.Handler{}, deps.Middleware...)
	chain = append(chain,
		middleware.RequestID,
		middleware.Logging(logger.Named("http")),
		middleware.Metrics(deps.Metrics, middleware.MuxRoute(mux)),
		middleware.Recover(logger.Named("http")),
		middleware.SecurityHeaders,
	)

	var handler http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	return &Router{
		mux:     mux,
		handler: handler,
	}, nil
}

func (r *Router) Handler() http.Handler {
	if r == nil {
		return nil
	}
	return r.handler
}
