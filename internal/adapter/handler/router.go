package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/semmidev/cloudvault/internal/infrastructure/logger"
)

type RouterConfig struct {
	AllowedOrigins []string
}

func NewRouter(files *FileHandler, history *HistoryHandler, log *logger.Logger, cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/upload", files.Upload)
	r.Get("/download/{filename}", files.Download)
	r.Get("/files", files.List)
	r.Delete("/delete/{filename}", files.Delete)

	r.Get("/history", history.List)
	r.Post("/delete-history", history.Delete)

	return r
}
