package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vantegra/fieldgo/internal/buildinfo"
	"github.com/vantegra/fieldgo/internal/config"
	"github.com/vantegra/fieldgo/internal/database"
	"github.com/vantegra/fieldgo/internal/entities"
	"github.com/vantegra/fieldgo/internal/middleware"
	"github.com/vantegra/fieldgo/internal/services/pdf"
	"github.com/vantegra/fieldgo/internal/services/storage"
	"github.com/vantegra/fieldgo/internal/sync"
)

// Router wraps the mux router with the services the handlers need
type Router struct {
	*mux.Router
	db      *database.DB
	cfg     *config.Config
	store   *entities.Store
	engine  *sync.Engine
	pdf     *pdf.Generator
	storage *storage.Presigner
	limiter *pushLimiter
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, store *entities.Store, engine *sync.Engine) *Router {
	r := &Router{
		Router:  mux.NewRouter(),
		db:      db,
		cfg:     cfg,
		store:   store,
		engine:  engine,
		pdf:     pdf.NewGenerator(),
		limiter: newPushLimiter(cfg.Sync.PushPerMinute),
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes (public)
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/refresh", r.refresh).Methods("POST")

	// Everything below requires a valid access token
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))

	api.HandleFunc("/auth/me", r.me).Methods("GET")

	// Delta sync gateway
	api.HandleFunc("/{entityType}/sync", r.pull).Methods("GET")
	api.HandleFunc("/{entityType}/sync/mutations", r.push).Methods("POST")

	// Documents and attachments
	api.HandleFunc("/invoices/{id}/pdf", r.invoicePDF).Methods("GET")
	api.HandleFunc("/quotes/{id}/pdf", r.quotePDF).Methods("GET")
	api.HandleFunc("/work_orders/{id}/attachments", r.presignAttachment).Methods("POST")
	api.HandleFunc("/work_orders/{id}/attachments", r.listAttachments).Methods("GET")

	// Per-entity CRUD for the web dashboard. Registered after the more
	// specific routes so {entityType} does not shadow them.
	api.HandleFunc("/{entityType}", r.list).Methods("GET")
	api.HandleFunc("/{entityType}", r.create).Methods("POST")
	api.HandleFunc("/{entityType}/{id}", r.get).Methods("GET")
	api.HandleFunc("/{entityType}/{id}", r.update).Methods("PUT")
	api.HandleFunc("/{entityType}/{id}", r.remove).Methods("DELETE")

	return r
}

// SetStorage wires the optional S3 presigner for attachment routes.
func (r *Router) SetStorage(p *storage.Presigner) {
	r.storage = p
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   buildinfo.Version,
		"commit":    buildinfo.CommitHash,
		"startedAt": buildinfo.StartTime,
	})
}

// principal returns the authenticated caller. The auth middleware
// guarantees it on every /api route, so a miss is a wiring bug.
func principal(req *http.Request) (middleware.Principal, bool) {
	return middleware.UserFrom(req.Context())
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
