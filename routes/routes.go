package routes

import (
	"net/http"

	"ume-client/config"
	"ume-client/handlers"
	"ume-client/middleware"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const APIPrefix = "/api/v1"

func SetupRoutes(cfg config.Config, backend *handlers.Backend) *mux.Router {
	router := mux.NewRouter()
	h := middleware.ErrorHandler
	auth := middleware.AuthMiddleware(cfg.Sandbox.JWTSecret)

	api := router.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/cities/", h(backend.CitiesHandler)).Methods("GET")
	api.HandleFunc("/cities/search", h(backend.SearchCitiesHandler)).Methods("GET")
	api.HandleFunc("/registration/", h(backend.RegistrationHandler)).Methods("POST")
	api.HandleFunc("/verification/", h(backend.VerificationHandler)).Methods("POST")
	api.HandleFunc("/verification/status/{userId:[0-9]+}", h(backend.StatusHandler)).Methods("GET")
	api.HandleFunc("/login/", h(backend.LoginHandler)).Methods("POST")
	api.HandleFunc("/reset-password/", h(backend.ResetPasswordHandler)).Methods("POST")
	api.HandleFunc("/users/change_password/", h(backend.ChangePasswordHandler)).Methods("POST")
	api.Handle("/users/me/", auth(h(backend.MeHandler))).Methods("GET")
	api.Handle("/users/me/edit/", auth(h(backend.EditProfileHandler))).Methods("POST")
	api.Handle("/users/me/photos/", auth(h(backend.UploadPhotosHandler))).Methods("POST")
	api.HandleFunc("/health", h(handlers.HealthHandler)).Methods("GET")

	router.HandleFunc("/sandbox/moderate/{userId:[0-9]+}", h(backend.ModerateHandler)).Methods("POST")

	return router
}

// NewHandler wraps the router with request logging, CORS and tracing.
func NewHandler(cfg config.Config, backend *handlers.Backend, log *zap.Logger) http.Handler {
	router := SetupRoutes(cfg, backend)
	router.Use(middleware.RequestLogger(log))

	corsOpts := []gorillaHandlers.CORSOption{
		gorillaHandlers.AllowedOrigins(cfg.Sandbox.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
	}
	return otelhttp.NewHandler(gorillaHandlers.CORS(corsOpts...)(router), "ume-sandbox")
}
