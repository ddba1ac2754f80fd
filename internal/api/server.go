// Package api exposes ingestion and question answering over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ajitpratap0/openclaw-graphrag/internal/graph"
	"github.com/ajitpratap0/openclaw-graphrag/internal/ingest"
	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
	"github.com/ajitpratap0/openclaw-graphrag/internal/qa"
	"github.com/ajitpratap0/openclaw-graphrag/internal/vector"
)

const maxBodyBytes = 4 << 20

// Ingestor ingests documents and frame captions.
type Ingestor interface {
	Ingest(ctx context.Context, doc models.SourceDocument) (ingest.Report, error)
	IngestCaptions(ctx context.Context, video string, captions []string) (ingest.Report, error)
}

// Answerer answers a question over both paths.
type Answerer interface {
	Answer(ctx context.Context, question string) qa.Answer
}

// Deps holds the collaborators served by the API.
type Deps struct {
	Ingestor Ingestor
	Answerer Answerer
	GraphQA  qa.GraphAnswerer
	Index    qa.Retriever
	Graph    graph.Store
	Vectors  vector.Backend
	TopK     int
}

// Server is an HTTP API server that exposes graph RAG operations.
type Server struct {
	deps      Deps
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(deps Deps, logger *slog.Logger, authToken string) *Server {
	if deps.TopK <= 0 {
		deps.TopK = vector.DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, logger: logger, authToken: authToken}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check, no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /v1/ingest", s.auth(s.handleIngest))
	mux.HandleFunc("POST /v1/captions", s.auth(s.handleCaptions))
	mux.HandleFunc("POST /v1/answer", s.auth(s.handleAnswer))
	mux.HandleFunc("POST /v1/query", s.auth(s.handleQuery))
	mux.HandleFunc("POST /v1/search", s.auth(s.handleSearch))
	mux.HandleFunc("GET /v1/stats", s.auth(s.handleStats))
	mux.Handle("GET /debug/vars", s.auth(expvar.Handler().ServeHTTP))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ingestRequest is the body accepted by POST /v1/ingest.
type ingestRequest struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
	Modality   string `json:"modality"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.DocumentID == "" {
		s.writeError(w, http.StatusBadRequest, "document_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	report, err := s.deps.Ingestor.Ingest(r.Context(), models.SourceDocument{
		DocumentID: req.DocumentID,
		Text:       req.Text,
		Modality:   req.Modality,
	})
	if err != nil {
		s.logger.Error("failed to ingest document", "document", req.DocumentID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to ingest document")
		return
	}
	s.writeJSON(w, reportStatus(report), report)
}

// captionsRequest is the body accepted by POST /v1/captions.
type captionsRequest struct {
	Video    string   `json:"video"`
	Captions []string `json:"captions"`
}

func (s *Server) handleCaptions(w http.ResponseWriter, r *http.Request) {
	var req captionsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Video == "" {
		s.writeError(w, http.StatusBadRequest, "video is required")
		return
	}
	if len(req.Captions) == 0 {
		s.writeError(w, http.StatusBadRequest, "captions are required")
		return
	}

	report, err := s.deps.Ingestor.IngestCaptions(r.Context(), req.Video, req.Captions)
	if err != nil {
		s.logger.Error("failed to ingest captions", "video", req.Video, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to ingest captions")
		return
	}
	s.writeJSON(w, reportStatus(report), report)
}

// reportStatus is 200 for a clean ingestion and 207 when either path failed
// or some items were rejected.
func reportStatus(r ingest.Report) int {
	if r.Err() != nil || r.Partial() {
		return http.StatusMultiStatus
	}
	return http.StatusOK
}

// questionRequest is the body accepted by POST /v1/answer and /v1/query.
type questionRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !s.decodeQuestion(w, r, &req) {
		return
	}
	// Per-path failures are part of the answer, so this is always 200.
	s.writeJSON(w, http.StatusOK, s.deps.Answerer.Answer(r.Context(), req.Question))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !s.decodeQuestion(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.GraphQA.Run(r.Context(), req.Question))
}

// searchRequest is the body accepted by POST /v1/search.
type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// searchResponse is returned by POST /v1/search.
type searchResponse struct {
	Results []models.RetrievedChunk `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.K <= 0 {
		req.K = s.deps.TopK
	}

	results, err := s.deps.Index.Retrieve(r.Context(), req.Query, req.K)
	if err != nil {
		s.logger.Error("failed to search index", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to search index")
		return
	}
	if results == nil {
		results = []models.RetrievedChunk{}
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

// statsResponse is returned by GET /v1/stats.
type statsResponse struct {
	Graph  models.GraphStats `json:"graph"`
	Chunks int64             `json:"chunks"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	gs, err := s.deps.Graph.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to get graph stats", "error", err)
		s.writeError(w, statusFor(err), "failed to get graph stats")
		return
	}
	chunks, err := s.deps.Vectors.Count(r.Context())
	if err != nil {
		s.logger.Error("failed to count chunks", "error", err)
		s.writeError(w, statusFor(err), "failed to count chunks")
		return
	}
	s.writeJSON(w, http.StatusOK, statsResponse{Graph: gs, Chunks: chunks})
}

// --- helpers ---

func statusFor(err error) int {
	if errors.Is(err, graph.ErrGraphUnavailable) || errors.Is(err, vector.ErrVectorUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) decodeQuestion(w http.ResponseWriter, r *http.Request, req *questionRequest) bool {
	if !s.decode(w, r, req) {
		return false
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, "question is required")
		return false
	}
	return true
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
