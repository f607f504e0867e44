// Package v1 mounts the HTTP surface of the candle pusher: health and
// symbol-catalog endpoints, Prometheus metrics and the WebSocket upgrade
// path.
package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/candlepulse/candle-pusher/candle/types"
	"github.com/candlepulse/candle-pusher/config"
)

const (
	// APIPathPrefix defines the v1 API path prefix.
	APIPathPrefix = "/api/v1"

	// StatusAvailable defines the healthz status when the server is
	// serving.
	StatusAvailable = "available"

	methodGET = "GET"
)

// Router defines a router wrapper used for registering v1 API routes.
type Router struct {
	logger   zerolog.Logger
	cfg      config.Config
	symbols  SymbolSource
	registry Registry
	gateway  Gateway
	started  time.Time
}

// New creates a new Router object with the given logger and dependencies.
func New(logger zerolog.Logger, cfg config.Config, symbols SymbolSource, registry Registry, gateway Gateway) *Router {
	return &Router{
		logger:   logger.With().Str("module", "router").Logger(),
		cfg:      cfg,
		symbols:  symbols,
		registry: registry,
		gateway:  gateway,
		started:  time.Now(),
	}
}

// RegisterRoutes register v1 API routes on the provided sub-router.
func (r *Router) RegisterRoutes(rtr *mux.Router, prefix string) {
	v1Router := rtr.PathPrefix(prefix).Subrouter()

	mChain := alice.New(r.corsMiddleware())

	v1Router.Handle(
		"/healthz",
		mChain.ThenFunc(r.healthzHandler()),
	).Methods(methodGET)

	v1Router.Handle(
		"/symbols/{exchange}",
		mChain.ThenFunc(r.symbolsHandler()),
	).Methods(methodGET)

	rtr.Handle("/metrics", promhttp.Handler()).Methods(methodGET)
	rtr.HandleFunc("/ws", r.gateway.HandleWS)
}

func (r *Router) corsMiddleware() alice.Constructor {
	opts := cors.Options{
		AllowedOrigins:   r.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{methodGET},
		AllowCredentials: true,
	}
	if r.cfg.Server.VerboseCORS {
		opts.Logger = corsLogger{r.logger}
	}
	c := cors.New(opts)
	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}

type corsLogger struct {
	logger zerolog.Logger
}

func (cl corsLogger) Printf(format string, args ...interface{}) {
	cl.logger.Debug().Msgf(format, args...)
}

// HealthZResponse defines the response for the healthz handler.
type HealthZResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Streams  int    `json:"streams"`
	Sessions int    `json:"sessions"`
}

func (r *Router) healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthZResponse{
			Status: StatusAvailable,
			Uptime: time.Since(r.started).Truncate(time.Second).String(),
		}
		if r.registry != nil {
			resp.Streams = r.registry.StreamCount()
		}
		if r.gateway != nil {
			resp.Sessions = r.gateway.SessionCount()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// SymbolsResponse defines the response for the symbols handler.
type SymbolsResponse struct {
	Exchange string   `json:"exchange"`
	Symbols  []string `json:"symbols"`
}

func (r *Router) symbolsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		exchangeID := mux.Vars(req)["exchange"]

		symbols, err := r.symbols.Symbols(req.Context(), exchangeID)
		if err != nil {
			var verr *types.ValidationError
			if errors.As(err, &verr) {
				writeErrorResponse(w, http.StatusBadRequest, verr.Error())
				return
			}
			r.logger.Err(err).Str("exchange", exchangeID).Msg("symbol fetch failed")
			writeErrorResponse(w, http.StatusBadGateway, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SymbolsResponse{
			Exchange: exchangeID,
			Symbols:  symbols,
		})
	}
}
