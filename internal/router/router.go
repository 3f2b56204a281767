package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"cloud-backend/internal/handlers"
	"cloud-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	chatHandler *handlers.ChatHandler,
	conversationHandler *handlers.ConversationHandler,
	weatherHandler *handlers.WeatherHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Chat rate limiter (30 req/min per IP)
	chatLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Chat Relay ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(chatLimiter.Middleware)
			r.Post("/chat", chatHandler.Relay)
		})

		// ──── Conversation Routes ────
		r.Route("/conversations", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)
			r.Get("/{id}", conversationHandler.Get)
			r.Put("/{id}", conversationHandler.Rename)
			r.Delete("/{id}", conversationHandler.Delete)
			r.Get("/{id}/messages", conversationHandler.ListMessages)
			r.Post("/{id}/messages", conversationHandler.AppendMessage)
		})

		// ──── Weather ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/weather", weatherHandler.Current)
		})
	})

	return r
}
