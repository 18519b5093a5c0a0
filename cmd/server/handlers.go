package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brunobiangulo/studyplan"
	"github.com/brunobiangulo/studyplan/graph"
)

// uploadFormats are the extensions accepted over HTTP. The engine also
// reads plain text, which is only offered to the CLI.
var uploadFormats = map[string]bool{".docx": true, ".pdf": true}

type handler struct {
	engine    studyplan.Engine
	maxUpload int64
}

func newHandler(e studyplan.Engine, maxUpload int64) *handler {
	return &handler{engine: e, maxUpload: maxUpload}
}

func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("POST /parse", h.handleParse)
	mux.HandleFunc("POST /parse-fast", h.handleParseFast)
	mux.HandleFunc("GET /csv/{id}", h.handleCSV)
	mux.HandleFunc("GET /xlsx/{id}", h.handleXLSX)
	mux.HandleFunc("GET /graph/{id}", h.handleGraph)
	mux.HandleFunc("GET /graph/{id}/chain/{code}", h.handleChain)
	mux.HandleFunc("GET /program-info/{id}", h.handleProgramInfo)
	mux.HandleFunc("GET /sessions/{id}", h.handleSession)
	mux.HandleFunc("DELETE /cleanup/{id}", h.handleCleanup)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

// GET /
func (h *handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Study Plan Extractor API"})
}

// POST /parse
// LLM extraction. Disabled when no chat provider is configured.
func (h *handler) handleParse(w http.ResponseWriter, r *http.Request) {
	if !h.engine.LLMAvailable() {
		writeError(w, http.StatusServiceUnavailable, "LLM extraction is not configured")
		return
	}
	h.parseUpload(w, r, 10*time.Minute, studyplan.WithLLM())
}

// POST /parse-fast
// Regex extraction.
func (h *handler) handleParseFast(w http.ResponseWriter, r *http.Request) {
	h.parseUpload(w, r, 2*time.Minute)
}

func (h *handler) parseUpload(w http.ResponseWriter, r *http.Request, timeout time.Duration, opts ...studyplan.ParseOption) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart field 'file'")
		return
	}
	defer file.Close()

	// Sanitise filename to prevent path traversal.
	safeName := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(safeName))
	if !uploadFormats[ext] {
		writeError(w, http.StatusBadRequest, "Only DOCX and PDF files are supported")
		return
	}

	dst, err := os.CreateTemp("", "studyplan-*"+ext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		slog.Error("creating temp file", "error", err)
		return
	}
	tmpPath := dst.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "failed to save file")
		slog.Error("saving uploaded file", "error", err)
		return
	}
	dst.Close()

	opts = append(opts, studyplan.WithFilename(safeName))
	res, err := h.engine.Parse(ctx, tmpPath, opts...)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("parse error", "file", safeName, "error", err)
		}
		writeError(w, status, "Failed to parse document: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GET /csv/{id}
func (h *handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	csv, err := h.engine.CSV(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=study-plan.csv")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, csv)
}

// GET /xlsx/{id}
func (h *handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.engine.XLSX(r.Context(), r.PathValue("id"), &buf); err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=study-plan.xlsx")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// GET /graph/{id}
func (h *handler) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := h.engine.Graph(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// GET /graph/{id}/chain/{code}?direction=prerequisites|dependents&depth=N
func (h *handler) handleChain(w http.ResponseWriter, r *http.Request) {
	dir, err := graph.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	depth := 0
	if v := r.URL.Query().Get("depth"); v != "" {
		depth, err = strconv.Atoi(v)
		if err != nil || depth < 0 {
			writeError(w, http.StatusBadRequest, "depth must be a non-negative integer")
			return
		}
	}

	code := r.PathValue("code")
	chain, err := h.engine.Chain(r.Context(), r.PathValue("id"), code, dir, depth)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"start":     code,
		"direction": dir,
		"chain":     chain,
	})
}

// GET /program-info/{id}
func (h *handler) handleProgramInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.engine.ProgramInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GET /sessions/{id}
func (h *handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.engine.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DELETE /cleanup/{id}
// Idempotent: an unknown or expired session is not an error.
func (h *handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	err := h.engine.DeleteSession(r.Context(), r.PathValue("id"))
	if err != nil && !errors.Is(err, studyplan.ErrSessionNotFound) {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Session cleaned up successfully",
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"llm":     h.engine.LLMAvailable(),
		"formats": h.engine.Formats(),
	})
}

// errorStatus maps engine errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, studyplan.ErrSessionNotFound), errors.Is(err, graph.ErrUnknownNode):
		return http.StatusNotFound
	case errors.Is(err, studyplan.ErrUnsupportedFormat), errors.Is(err, studyplan.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, studyplan.ErrLLMUnavailable), errors.Is(err, studyplan.ErrStoreClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, studyplan.ErrLLMRequestFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
