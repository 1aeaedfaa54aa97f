package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"carprice/db"
	"carprice/service"
	"go.uber.org/zap"
)

type TrainingLogReader interface {
	LoadTrainingLog(ctx context.Context, limit int) ([]db.TrainingLog, error)
}

type apiHandlers struct {
	app  *service.App
	logs TrainingLogReader
	log  *zap.Logger
}

func RegisterAPIHandlers(mux *http.ServeMux, app *service.App, logs TrainingLogReader, logger *zap.Logger) {
	h := &apiHandlers{app: app, logs: logs, log: logger}
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/dataset", h.handleDataset)
	mux.HandleFunc("GET /api/training-log", h.handleTrainingLog)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *apiHandlers) handleDataset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.app.Snapshot())
}

func (h *apiHandlers) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		http.Error(w, "training log not available", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	logs, err := h.logs.LoadTrainingLog(r.Context(), limit)
	if err != nil {
		h.log.Error("load training log", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"entries": logs,
		"count":   len(logs),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
