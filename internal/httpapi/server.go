// Package httpapi exposes score decoding over HTTP so non-Go frontends can
// reuse the decoder.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/keyfall/smfplay-go/internal/debug"
	"github.com/keyfall/smfplay-go/internal/smf"
)

const maxUploadBytes = 16 << 20

// Fetcher downloads and decodes a score from a URL, forwarding token as a
// bearer credential when non-empty.
type Fetcher func(ctx context.Context, url, token string) (*smf.Score, error)

type Server struct {
	fetch Fetcher
}

// New builds the API server. fetch may be nil, which disables the summary
// endpoint with a 501.
func New(fetch Fetcher) *Server {
	return &Server{fetch: fetch}
}

// Handler returns the routed handler with permissive CORS, ready for
// http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/v1/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/v1/scores", s.handleDecode).Methods("POST")
	router.HandleFunc("/v1/scores/summary", s.handleSummary).Methods("GET")
	return cors.AllowAll().Handler(router)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type summaryResponse struct {
	NoteCount     int               `json:"noteCount"`
	TotalDuration float64           `json:"totalDuration"`
	TempoBPM      int               `json:"tempoBpm"`
	TimeSignature smf.TimeSignature `json:"timeSignature"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	score, err := smf.Parse(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	debug.Logf("httpapi", "decoded %d notes from %d bytes", len(score.Notes), len(data))
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.fetch == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "fetching disabled", Kind: "Unavailable"})
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing url parameter", Kind: "BadRequest"})
		return
	}
	token := bearerToken(r)
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	score, err := s.fetch(ctx, url, token)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		NoteCount:     len(score.Notes),
		TotalDuration: score.TotalDuration,
		TempoBPM:      score.TempoBPM,
		TimeSignature: score.TimeSignature,
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// writeError maps decode errors onto the response taxonomy so clients can
// distinguish a malformed file from a truncated one.
func writeError(w http.ResponseWriter, status int, err error) {
	kind := "Internal"
	var fmtErr *smf.FormatError
	var truncErr *smf.TruncatedDataError
	switch {
	case errors.As(err, &fmtErr):
		kind = "FormatError"
		status = http.StatusBadRequest
	case errors.As(err, &truncErr):
		kind = "TruncatedDataError"
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Logf("httpapi", "encode response: %v", err)
	}
}
