// Package handler serves the atlas generation API and the generated
// artifacts.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"msdf-gateway/internal/atlas"
	"msdf-gateway/internal/upload"
)

// OutputPrefix is the URL path the output directory is served under.
const OutputPrefix = "/output/"

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OutputURLs point at the three generated artifacts.
type OutputURLs struct {
	Font  string `json:"font"`
	Image string `json:"image"`
	JSON  string `json:"json"`
}

// GenerateResponse is returned by a successful POST /api/generate.
type GenerateResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Output  OutputURLs        `json:"output"`
	Config  map[string]string `json:"config"`
}

// Handler runs generation requests. Each request gets its own job
// directory under OutputDir so artifacts of concurrent requests never
// collide, even for fonts with the same file name.
type Handler struct {
	Uploads   *upload.Acceptor
	Runner    atlas.Runner
	OutputDir string

	newJobID func() string
}

// New creates a Handler.
func New(uploads *upload.Acceptor, runner atlas.Runner, outputDir string) *Handler {
	return &Handler{
		Uploads:   uploads,
		Runner:    runner,
		OutputDir: outputDir,
		newJobID:  uuid.NewString,
	}
}

// Generate handles POST /api/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	file, err := h.Uploads.Accept(r)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	defer func() {
		if err := file.Remove(); err != nil {
			log.Printf("Error cleaning up upload: %v", err)
		}
	}()

	opts, err := atlas.ParseOptions(r.PostForm)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if opts.GlyphMode == atlas.SelectedGlyphs {
		if missing := file.Font.MissingRunes(opts.Chars); len(missing) > 0 {
			log.Printf("Font %q has no glyphs for %q", file.OriginalName, string(missing))
		}
	}

	jobID := h.newJobID()
	jobDir := filepath.Join(h.OutputDir, jobID)
	if err := os.Mkdir(jobDir, 0o755); err != nil {
		log.Printf("Error creating job directory: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to prepare output directory"})
		return
	}

	out := atlas.NewOutputs(jobDir, file.OriginalName)
	args := atlas.BuildArgs(file.Path, opts, out)
	log.Printf("Generating atlas %s for %q (%d glyphs): %q", jobID, file.OriginalName, file.Font.NumGlyphs, args)

	// The child outlives a disconnected client; only the generator timeout
	// stops it.
	ctx := context.WithoutCancel(r.Context())
	if err := h.run(ctx, args, out); err != nil {
		log.Printf("Error executing command: %v", err)
		if rmErr := os.RemoveAll(jobDir); rmErr != nil {
			log.Printf("Error removing failed job %s: %v", jobID, rmErr)
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	base := baseURL(r) + OutputPrefix + jobID + "/"
	names := out.Names()
	writeJSON(w, http.StatusOK, GenerateResponse{
		Success: true,
		Message: "Atlas generated successfully",
		Output: OutputURLs{
			Font:  base + url.PathEscape(names[0]),
			Image: base + url.PathEscape(names[1]),
			JSON:  base + url.PathEscape(names[2]),
		},
		Config: formConfig(r.PostForm),
	})
}

// run invokes the generator and checks that every artifact was written.
func (h *Handler) run(ctx context.Context, args []string, out atlas.Outputs) error {
	if err := h.Runner.Run(ctx, args); err != nil {
		return err
	}
	for _, path := range []string{out.Font(), out.Image(), out.JSON()} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("generator did not produce %s", filepath.Base(path))
		}
	}
	return nil
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeUploadError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
	case errors.Is(err, upload.ErrNoFile),
		errors.Is(err, upload.ErrInvalidFileType),
		errors.Is(err, upload.ErrInvalidFont):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		log.Printf("Error processing upload: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// baseURL is scheme://host of the request as the client saw it. A proxy's
// X-Forwarded-Proto wins over the connection's own protocol.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

// formConfig echoes the non-file form fields back to the caller.
func formConfig(form url.Values) map[string]string {
	cfg := make(map[string]string, len(form))
	for key := range form {
		cfg[key] = form.Get(key)
	}
	return cfg
}
