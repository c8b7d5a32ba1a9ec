package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/heicbridge/service/docs/swagger"
	appMiddleware "github.com/heicbridge/service/internal/middleware"
	"github.com/heicbridge/service/internal/response"
	"github.com/heicbridge/service/internal/upload"
)

func newRouter(log logrus.FieldLogger, uploadHandler *upload.Handler, maxBody int64) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w)
	})

	r.Get("/health", health)

	// Swagger UI, available at http://localhost:3000/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.With(chiMiddleware.RequestSize(maxBody)).Post("/convert-heic", uploadHandler.Convert)

	return r
}

// health godoc
//
//	@Summary		Health check
//	@Description	Liveness probe.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func health(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}
