package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shusrusha/shusrusha/internal/pipeline"
	"github.com/shusrusha/shusrusha/version"
)

// maxUploadBytes bounds the total request size for /process.
const maxUploadBytes = 50 << 20

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// StatusResponse is the response for GET /status.
type StatusResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Version       string `json:"version"`
}

// ProcessResponse is the response for POST /process.
type ProcessResponse struct {
	RunID            string          `json:"run_id"`
	Markdown         string          `json:"markdown"`
	Diagnoses        json.RawMessage `json:"diagnoses"`
	Medications      json.RawMessage `json:"medications"`
	FixedMedications json.RawMessage `json:"fixed_medications"`
	HTMLSummary      string          `json:"html_summary"`
	DurationMS       int64           `json:"duration_ms"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: version.GitRelease})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	uptime := time.Since(s.startedAt)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(uptime.Seconds()),
		Version:       version.GitRelease,
	})
}

// handleProcess accepts multipart form data with one or more "images"
// parts, runs the full pipeline, and returns every state artifact.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parsing multipart form: %v", err))
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no images provided (use multipart field 'images')")
		return
	}

	var pages []pipeline.Page
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("opening upload %s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("reading upload %s: %v", fh.Filename, err))
			return
		}
		pages = append(pages, pipeline.Page{Name: fh.Filename, Data: data})
	}

	start := time.Now()
	st := pipeline.NewState(pages)
	s.logger.Info("processing request", "run_id", st.RunID, "pages", len(pages))

	if err := s.runner.Run(r.Context(), st); err != nil {
		s.logger.Error("run failed", "run_id", st.RunID, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{
		RunID:            st.RunID,
		Markdown:         st.Markdown,
		Diagnoses:        mustMarshal(st.Diagnoses),
		Medications:      mustMarshal(st.Medications),
		FixedMedications: mustMarshal(st.FixedMedications),
		HTMLSummary:      st.HTMLSummary,
		DurationMS:       time.Since(start).Milliseconds(),
	})
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
