package handler

import (
	"net/http"

	"github.com/MattB543/textpress-matt-test/internal/config"
	"github.com/MattB543/textpress-matt-test/internal/observability"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(container *config.Container) http.Handler {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	router := mux.NewRouter()
	router.Use(RequestLogging(logger))

	documentHandler := NewDocumentHandler(
		container.GetDocumentService(),
		cfg.GetMaxFileSize(),
		cfg.GetMaxTextSize(),
		container.DatabaseConfigured,
		logger,
	)
	sessionHandler := NewSessionHandler(container.GetSessions(), cfg.GetMaxFileSize(), cfg.GetMaxTextSize(), logger)

	router.HandleFunc("/healthz", documentHandler.Health).Methods("GET")
	router.Handle("/metrics", observability.Handler()).Methods("GET")

	// Published documents
	router.HandleFunc("/d/{id:[A-Za-z0-9_-]+}.html", documentHandler.ServeHTML).Methods("GET")
	router.HandleFunc("/d/{id:[A-Za-z0-9_-]+}.md", documentHandler.ServeMarkdown).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/convert", documentHandler.Convert).Methods("POST")
	api.HandleFunc("/combine", documentHandler.Combine).Methods("POST")

	// Orchestration sessions
	api.HandleFunc("/sessions", sessionHandler.Create).Methods("POST")
	api.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods("GET")
	api.HandleFunc("/sessions/{id}", sessionHandler.Delete).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/events", sessionHandler.Events).Methods("GET")
	api.HandleFunc("/sessions/{id}/title", sessionHandler.SetTitle).Methods("PUT")
	api.HandleFunc("/sessions/{id}/combine", sessionHandler.RetryCombine).Methods("POST")
	api.HandleFunc("/sessions/{id}/slots/{index:[0-9]+}", sessionHandler.BindSlot).Methods("POST")
	api.HandleFunc("/sessions/{id}/slots/{index:[0-9]+}", sessionHandler.ResetSlot).Methods("DELETE")

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.GetCORSAllowOrigins(),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		AllowCredentials: false,
		MaxAge:           300,
	})

	return c.Handler(router)
}
