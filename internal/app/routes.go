package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/taskboard/internal/handlers"
	"github.com/benvon/taskboard/internal/middleware"
	"github.com/benvon/taskboard/internal/services/suggest"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// RequestTimeout bounds every request; AI calls carry their own shorter timeout
const RequestTimeout = 60 * time.Second

// Router builds the HTTP API. Middleware registered first runs outermost.
func (a *App) Router(version handlers.VersionInfo) (http.Handler, error) {
	cfg := a.Config
	r := mux.NewRouter()

	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(cfg.ServiceName))
	}
	r.Use(middleware.Logging(a.Logger))
	r.Use(middleware.ErrorHandler(a.Logger))
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(RequestTimeout))

	apiLimit, err := middleware.RateLimit(cfg.RateLimit, "api", a.Redis, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create API rate limiter: %w", err)
	}

	// Public routes
	handlers.NewHealthChecker(a.HealthChecks()).RegisterRoutes(r)
	r.HandleFunc("/version", handlers.VersionHandler(version)).Methods("GET")
	handlers.NewOpenAPIHandler().RegisterRoutes(r)

	// The AI backend is hosted only when a provider key is configured
	if a.Backend != nil {
		aiLimit, err := middleware.RateLimit(cfg.AIRateLimit, "ai", a.Redis, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create AI rate limiter: %w", err)
		}
		aiRouter := r.PathPrefix(suggest.EndpointPath).Subrouter()
		if a.Verifier != nil {
			aiRouter.Use(middleware.Auth(a.Verifier, a.Logger))
		}
		aiRouter.Use(aiLimit)
		handlers.NewSuggestionHandler(a.Backend, a.Logger).RegisterRoutes(aiRouter)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	if a.Verifier != nil {
		api.Use(middleware.Auth(a.Verifier, a.Logger))
	} else {
		a.Logger.Warn("api_auth_disabled")
	}
	api.Use(apiLimit)

	handlers.NewTaskHandler(a.Store).RegisterRoutes(api.PathPrefix("/tasks").Subrouter())
	handlers.NewResetHandler(a.Reset).RegisterRoutes(api.PathPrefix("/reset").Subrouter())
	handlers.NewBoardHandler(a.Store, a.Adapter, a.Feed, a.Logger).RegisterRoutes(api)

	// Preflight requests need a matching route for the middleware chain to run
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	a.Logger.Info("routes_registered",
		zap.Bool("ai_backend", a.Backend != nil),
		zap.Bool("ai_suggestions", a.Suggester != nil),
		zap.Bool("auth", a.Verifier != nil),
	)
	return r, nil
}
