package http

import (
	"io"
	"log/slog"

	"github.com/cmlabs-hris/attendance-tracker-go/internal/config"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-tracker-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(logWriter io.Writer, appCfg config.AppConfig, JWTService jwt.Service, trackingHandler TrackingHandler, deviceHandler DeviceHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(appCfg.Env != "production")
	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-tracker"),
		slog.String("env", appCfg.Env),
	)

	origins := appCfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// EventSource cannot send headers, the token comes as a query parameter
		r.Get("/tracking/events", trackingHandler.Events)

		// Requires a device token
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.DeviceRequired(JWTService.JWTAuth()))

			r.Route("/tracking", func(r chi.Router) {
				r.Post("/start", trackingHandler.Start)
				r.Post("/stop", trackingHandler.Stop)
				r.Get("/status", trackingHandler.Status)
				r.Get("/stats", trackingHandler.Stats)

				r.Route("/queue", func(r chi.Router) {
					r.Get("/", trackingHandler.Queue)
					r.Post("/drain", trackingHandler.Drain)
				})
			})

			r.Route("/device", func(r chi.Router) {
				r.Post("/positions", deviceHandler.Position)
				r.Post("/position-errors", deviceHandler.PositionError)
				r.Post("/app-state", deviceHandler.AppState)
				r.Post("/connectivity", deviceHandler.Connectivity)
				r.Post("/permissions", deviceHandler.Permission)
			})
		})
	})

	return r
}
