package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/events"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/gate"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/refdata"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/store"
)

type Server struct {
	gate     *gate.Gate
	registry store.Registry
	refdata  *refdata.Loader
	chunkMax int
	router   chi.Router
	port     int
}

func NewServer(g *gate.Gate, reg store.Registry, rd *refdata.Loader, chunkMax, port int) *Server {
	srv := &Server{
		gate:     g,
		registry: reg,
		refdata:  rd,
		chunkMax: chunkMax,
		port:     port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/", srv.handleRoot)
	r.Get("/webhook-status", srv.handleWebhookStatus)
	r.Get("/webhook", srv.handleWebhookLive)
	r.Post("/webhook", srv.handleWebhook)
	r.Get("/webhook/{callID}", srv.handleCallLookup)
	r.Get("/calls", srv.handleRecentCalls)

	r.Get("/rooms", srv.handleRefData((*refdata.Loader).Rooms))
	r.Get("/pricing", srv.handleRefData((*refdata.Loader).Pricing))
	r.Get("/rules", srv.handleRefData((*refdata.Loader).Rules))
	r.Get("/faqs", srv.handleRefData((*refdata.Loader).Queries))
	r.Get("/rules/chunks", srv.handleRulesChunks)

	srv.router = r
	return srv
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("starting HTTP API", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Formi Voice AI API is running"})
}

func (s *Server) handleWebhookLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook is live. Use POST to send data."})
}

func (s *Server) handleWebhookStatus(w http.ResponseWriter, r *http.Request) {
	n, err := s.registry.CountLogged(r.Context())
	if err != nil {
		slog.Error("count logged calls failed", "error", err)
		n = -1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Webhook server is running",
		"logged_calls": n,
	})
}

// handleWebhook admits one end-of-call event. Skips are reported as success
// so the platform's at-least-once delivery can safely retry; only a sink or
// store failure surfaces as a server error.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	e, err := events.Normalize(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	decision, err := s.gate.Handle(r.Context(), e)
	if err != nil {
		slog.Error("webhook processing failed", "call_id", e.CallID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"details": err.Error(),
		})
		return
	}

	switch decision {
	case gate.RejectMissingCallID:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing call_id"})
	case gate.SkipNotFinished:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Call not completed yet. Skipping log."})
	case gate.SkipSummaryPending:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Call summary not yet available. Skipping log."})
	case gate.SkipAlreadyLogged:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Already logged"})
	case gate.Processed:
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Final data logged",
			"call_id": e.CallID,
		})
	}
}

func (s *Server) handleCallLookup(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	logged, err := s.registry.Contains(r.Context(), callID)
	if err != nil {
		slog.Error("call lookup failed", "call_id", callID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if !logged {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"message": fmt.Sprintf("No data found for call_id '%s'", callID),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Data for call_id '%s' has been logged.", callID),
	})
}

func (s *Server) handleRecentCalls(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	calls, err := s.registry.RecentCalls(r.Context(), limit)
	if err != nil {
		slog.Error("query recent calls failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, calls)
}

// handleRefData serves the first five records of a reference CSV, matching
// what the voice agent's lookup tools expect.
func (s *Server) handleRefData(load func(*refdata.Loader) ([]refdata.Record, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := load(s.refdata)
		if err != nil {
			slog.Error("load reference data failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		if len(data) > 5 {
			data = data[:5]
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": data})
	}
}

func (s *Server) handleRulesChunks(w http.ResponseWriter, r *http.Request) {
	data, err := s.refdata.Rules()
	if err != nil {
		slog.Error("load rules failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	chunks := refdata.ChunkRecords(data, s.chunkMax)
	writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
