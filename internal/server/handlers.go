package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/mindcareai/mindcare/internal/history"
	"github.com/mindcareai/mindcare/internal/predict"
	"github.com/mindcareai/mindcare/internal/record"
	"github.com/rs/zerolog/log"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

const capacityMessage = "Server at capacity, try again later"

// HTTP Handlers

// predict scores the record in the request body.
func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	if !s.tracker.Acquire() {
		http.Error(w, capacityMessage, http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		s.tracker.Release(predict.Failure(err), 0)
		writeJSON(w, http.StatusBadRequest, predict.Failure(fmt.Errorf("failed to read request body: %w", err)))
		return
	}

	rec, err := record.Decode(body)
	if err != nil {
		s.tracker.Release(predict.Failure(err), 0)
		writeJSON(w, http.StatusBadRequest, predict.Failure(err))
		return
	}

	res, assessment := s.score(r.Context(), rec)
	if assessment != nil {
		w.Header().Set("X-Assessment-ID", assessment.ID.String())
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// score runs one tracked prediction and stores it when history is enabled.
// The caller must already hold a tracker slot.
func (s *Server) score(ctx context.Context, rec record.Record) (predict.Result, *history.Assessment) {
	start := time.Now()
	res := s.service.Predict(ctx, rec)
	s.tracker.Release(res, time.Since(start))

	if s.history == nil {
		return res, nil
	}
	assessment, err := s.history.Save(ctx, rec, res)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store assessment")
		return res, nil
	}
	return res, assessment
}

// streamPredictions scores every text message received on a WebSocket and
// replies with one result per message.
func (s *Server) streamPredictions(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("Prediction stream closed unexpectedly")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var res predict.Result
		switch rec, err := record.Decode(data); {
		case err != nil:
			res = predict.Failure(err)
		case !s.tracker.Acquire():
			res = predict.Failure(errors.New(capacityMessage))
		default:
			res, _ = s.score(r.Context(), rec)
		}

		if err := conn.WriteJSON(res); err != nil {
			log.Warn().Err(err).Msg("Failed to write prediction to stream")
			return
		}
	}
}

// modelInfo describes the loaded model and its input vocabulary.
func (s *Server) modelInfo(w http.ResponseWriter, r *http.Request) {
	bundle := s.service.Bundle()
	writeJSON(w, http.StatusOK, map[string]any{
		"info":         bundle.Info,
		"classes":      bundle.Classifier.Classes(),
		"features":     bundle.Classifier.Features(),
		"vocabularies": bundle.Encoder,
		"fingerprint":  bundle.Fingerprint,
		"heuristic":    bundle.Heuristic,
	})
}

// ruleTables returns the active risk and recommendation rules.
func (s *Server) ruleTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Tables())
}

// listAssessments returns the most recent stored assessments.
func (s *Server) listAssessments(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		http.Error(w, fmt.Sprintf("Invalid limit '%s'", r.URL.Query().Get("limit")), http.StatusBadRequest)
		return
	}

	assessments, err := s.history.List(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list assessments")
		http.Error(w, "Failed to list assessments", http.StatusInternalServerError)
		return
	}
	if assessments == nil {
		assessments = []history.Assessment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": assessments})
}

// getAssessment returns a single stored assessment.
func (s *Server) getAssessment(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid assessment id '%s'", vars["id"]), http.StatusBadRequest)
		return
	}

	assessment, err := s.history.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, fmt.Sprintf("Assessment '%s' not found", id), http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("assessment_id", id.String()).Msg("Failed to load assessment")
		http.Error(w, "Failed to load assessment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// listAlerts returns the most recent crisis alerts.
func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		http.Error(w, fmt.Sprintf("Invalid limit '%s'", r.URL.Query().Get("limit")), http.StatusBadRequest)
		return
	}

	alerts, err := s.history.Alerts(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list alerts")
		http.Error(w, "Failed to list alerts", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []history.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// healthCheck returns server health status
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	bundle := s.service.Bundle()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"model_type":         bundle.Info.ModelType,
		"heuristic":          bundle.Heuristic,
		"history":            s.history != nil,
		"active_predictions": s.tracker.Active(),
		"timestamp":          time.Now(),
	})
}

func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.history == nil {
		http.Error(w, "Assessment history is not enabled", http.StatusNotFound)
		return false
	}
	return true
}

func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, false
	}
	return min(limit, maxListLimit), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
