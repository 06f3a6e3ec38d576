package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/testloom-ai/testloom/internal/api"
	"github.com/testloom-ai/testloom/internal/api/handlers"
	"github.com/testloom-ai/testloom/internal/api/middleware"
)

type RouterConfig struct {
	DocumentHandler      *handlers.DocumentHandler
	KnowledgeBaseHandler *handlers.KnowledgeBaseHandler
	GenerateHandler      *handlers.GenerateHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 20 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SessionID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Upload)
		r.Get("/", cfg.DocumentHandler.List)
	})

	r.Route("/html", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.UploadHTML)
		r.Post("/text", cfg.DocumentHandler.UploadHTMLText)
		r.Get("/", cfg.DocumentHandler.GetHTML)
	})

	r.Route("/knowledge-base", func(r chi.Router) {
		r.Post("/build", cfg.KnowledgeBaseHandler.Build)
		r.Get("/status", cfg.KnowledgeBaseHandler.Status)
		r.Delete("/", cfg.KnowledgeBaseHandler.Clear)
	})

	r.Post("/search", cfg.KnowledgeBaseHandler.Search)

	r.Route("/generate", func(r chi.Router) {
		r.Post("/test-cases", cfg.GenerateHandler.TestCases)
		r.Post("/script", cfg.GenerateHandler.Script)
	})

	return r
}
