package handler

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"msdf-gateway/internal/config"
	"msdf-gateway/internal/middleware"
)

// NewRouter wires the API and the static output routes.
func NewRouter(cfg *config.Config, h *Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.SizeLimit(cfg.MaxUploadBytes))
	api.HandleFunc("/generate", h.Generate).Methods(http.MethodPost)

	r.PathPrefix(OutputPrefix).
		Handler(http.StripPrefix(OutputPrefix, http.FileServer(fileOnlyFS{http.Dir(cfg.OutputDir)}))).
		Methods(http.MethodGet, http.MethodHead)

	var handler http.Handler = middleware.CORS(cfg.AllowOrigin)(r)
	if cfg.ForceHTTPS {
		handler = middleware.ForceHTTPS(handler)
	}
	return middleware.Recover(handler)
}

// fileOnlyFS hides directories so the output tree cannot be listed.
type fileOnlyFS struct {
	fs http.FileSystem
}

func (f fileOnlyFS) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
