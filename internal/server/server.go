// Package server exposes an Engine as a JSON HTTP API.
//
// Endpoints:
//
//	POST /api/cover        body: {"line":"..."}
//	POST /api/cover/text   body: {"text":"..."}   one result per non-blank line
//	GET  /api/rules
//	GET  /healthz
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/cors"

	"github.com/papapumpkin/rulecover/internal/engine"
	"github.com/papapumpkin/rulecover/internal/report"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// Options configures a Server.
type Options struct {
	Mode        report.Mode
	Workers     int
	CORSOrigins []string
}

// Server serves coverage requests. The engine may be replaced while serving,
// for example after the rule document changed on disk.
type Server struct {
	engine atomic.Pointer[engine.Engine]
	opts   Options
}

// New returns a Server answering with e.
func New(e *engine.Engine, opts Options) *Server {
	if opts.Mode == "" {
		opts.Mode = report.ModeBoth
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	s := &Server{opts: opts}
	s.engine.Store(e)
	return s
}

// SetEngine replaces the engine used by subsequent requests.
func (s *Server) SetEngine(e *engine.Engine) {
	s.engine.Store(e)
}

// Handler returns the routed handler, wrapped in CORS handling when origins
// are configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cover/text", s.handleCoverText)
	mux.HandleFunc("/api/cover", s.handleCover)
	mux.HandleFunc("/api/rules", s.handleRules)
	mux.HandleFunc("/healthz", s.handleHealth)

	if len(s.opts.CORSOrigins) == 0 {
		return mux
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)
}

// ---- JSON response types ------------------------------------------------

type coverTextResponse struct {
	Results []report.ResultJSON `json:"results"`
}

type ruleJSON struct {
	ID       int      `json:"id"`
	Pattern  []string `json:"pattern"`
	Comment  string   `json:"comment,omitempty"`
	Shadowed bool     `json:"shadowed,omitempty"`
}

type rulesResponse struct {
	Rules []ruleJSON `json:"rules"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Rules      int    `json:"rules"`
	Categories int    `json:"categories"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ---- helpers ------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// ---- handlers -----------------------------------------------------------

func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body struct {
		Line string `json:"line"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Line) == "" {
		writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty 'line' field")
		return
	}

	res := s.engine.Load().Cover(r.Context(), engine.Line{No: 1, Text: body.Line})
	status := http.StatusOK
	if res.Err != nil {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, report.NewResultJSON(res, s.opts.Mode, true))
}

func (s *Server) handleCoverText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty 'text' field")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	lines := make(chan engine.Line)
	go func() {
		defer close(lines)
		_ = engine.Feed(ctx, strings.NewReader(body.Text), "", lines)
	}()

	out := coverTextResponse{Results: []report.ResultJSON{}}
	err := s.engine.Load().CoverAll(ctx, lines, s.opts.Workers, func(res engine.Result) error {
		out.Results = append(out.Results, report.NewResultJSON(res, s.opts.Mode, false))
		return nil
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	a := s.engine.Load().Automaton()

	out := rulesResponse{Rules: []ruleJSON{}}
	for _, e := range a.Listing() {
		out.Rules = append(out.Rules, ruleJSON{ID: e.RuleID, Pattern: e.Categories, Comment: e.Comment})
	}
	for _, sh := range a.Shadowed() {
		out.Rules = append(out.Rules, ruleJSON{ID: sh.RuleID, Pattern: sh.Categories, Shadowed: true})
	}
	sort.Slice(out.Rules, func(i, j int) bool { return out.Rules[i].ID < out.Rules[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	e := s.engine.Load()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Rules:      e.Automaton().Rules(),
		Categories: e.Categories(),
	})
}
