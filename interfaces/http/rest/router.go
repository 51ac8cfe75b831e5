package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"guard-backend/infrastructure/di"
	"guard-backend/interfaces/http/rest/handlers"
	"guard-backend/interfaces/http/rest/middleware"
	"guard-backend/pkg/auth"
)

// Router creates and configures the HTTP router
type Router struct {
	container *di.Container
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(container *di.Container) *Router {
	return &Router{
		container: container,
		logger:    container.Logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.container.Config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	locationHandler := handlers.NewLocationHandler(rt.container.CommandBus, rt.container.QueryBus, rt.logger)
	geofenceHandler := handlers.NewGeofenceHandler(rt.container.CommandBus, rt.container.QueryBus, rt.logger)
	alertHandler := handlers.NewAlertHandler(rt.container.QueryBus, rt.logger)
	sosHandler := handlers.NewSOSHandler(rt.container.CommandBus, rt.logger)
	subjectHandler := handlers.NewSubjectHandler(rt.container.CommandBus, rt.container.ManageSubjects, rt.logger)
	guardianHandler := handlers.NewGuardianHandler(rt.container.QueryBus, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.container.JWTValidator, rt.container.RateLimiter, rt.logger))

		// Device-facing ingestion endpoint. The subject identifier rides in
		// the body because trackers post to a single fixed URL.
		r.Post("/locations", locationHandler.IngestLocation)

		r.Route("/subjects", func(r chi.Router) {
			r.Post("/", subjectHandler.RegisterSubject)

			r.Route("/{subjectID}", func(r chi.Router) {
				r.Get("/locations", locationHandler.GetLocationHistory)
				r.Get("/locations/latest", locationHandler.GetLatestLocation)

				r.Put("/safezone", geofenceHandler.ConfigureSafeZone)
				r.Get("/safezone", geofenceHandler.GetSafeZone)
				r.Delete("/safezone", geofenceHandler.ClearSafeZone)

				r.Get("/alerts", alertHandler.ListAlerts)
				r.Post("/sos", sosHandler.SignalEmergency)

				r.Post("/guardians", subjectHandler.LinkGuardian)
				r.Delete("/guardians/{guardianID}", subjectHandler.UnlinkGuardian)
			})
		})

		r.Get("/guardians/{guardianID}/subjects", guardianHandler.ListWatchedSubjects)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			r.Get("/dashboard", alertHandler.GetDashboard)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
