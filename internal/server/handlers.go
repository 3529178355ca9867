package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"overlay-widgets/internal/api"
	apperrors "overlay-widgets/internal/errors"
	"overlay-widgets/internal/gateway"
)

type createTimerRequest struct {
	Name      string `json:"name"`
	WorkMs    int64  `json:"work_ms"`
	BreakMs   int64  `json:"break_ms"`
	CycleGoal *int   `json:"cycle_goal"`
}

type settingsRequest struct {
	WorkMs    int64 `json:"work_ms"`
	BreakMs   int64 `json:"break_ms"`
	CycleGoal *int  `json:"cycle_goal"`
}

type adjustRequest struct {
	DeltaMs int64 `json:"delta_ms"`
}

// maxDurationMs is the largest millisecond count a time.Duration can hold
const maxDurationMs = math.MaxInt64 / int64(time.Millisecond)

// durationFromMs converts a millisecond field, rejecting values that would
// overflow time.Duration
func durationFromMs(field string, ms int64) (time.Duration, error) {
	if ms > maxDurationMs || ms < -maxDurationMs {
		return 0, apperrors.NewInvalidInputError(field, ms, "out of range")
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func settingsInput(workMs, breakMs int64, goal *int) (api.TimerSettingsInput, error) {
	work, err := durationFromMs("work_ms", workMs)
	if err != nil {
		return api.TimerSettingsInput{}, err
	}
	brk, err := durationFromMs("break_ms", breakMs)
	if err != nil {
		return api.TimerSettingsInput{}, err
	}
	return api.TimerSettingsInput{
		WorkDuration:  work,
		BreakDuration: brk,
		CycleGoal:     goal,
	}, nil
}

type healthResponse struct {
	Status      string         `json:"status"`
	Connections *gateway.Stats `json:"connections,omitempty"`
}

// statsReporter is implemented by streams that can count their overlays
type statsReporter interface {
	GetConnectionStats() gateway.Stats
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthResponse{Status: "ok"}
	if reporter, ok := s.stream.(statsReporter); ok {
		stats := reporter.GetConnectionStats()
		body.Connections = &stats
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleListTimers(w http.ResponseWriter, r *http.Request) {
	views, err := s.api.ListTimers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateTimer(w http.ResponseWriter, r *http.Request) {
	var req createTimerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	settings, err := settingsInput(req.WorkMs, req.BreakMs, req.CycleGoal)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := s.api.CreateTimer(r.Context(), req.Name, settings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	view, err := s.api.GetTimer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteTimer(w http.ResponseWriter, r *http.Request) {
	if err := s.api.DeleteTimer(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfigureTimer(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	settings, err := settingsInput(req.WorkMs, req.BreakMs, req.CycleGoal)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := s.api.ConfigureTimer(r.Context(), mux.Vars(r)["id"], settings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAdjustTimer(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	delta, err := durationFromMs("delta_ms", req.DeltaMs)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := s.api.AdjustTimer(r.Context(), mux.Vars(r)["id"], delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type controlFunc func(ctx context.Context, id string) (*api.TimerView, error)

// control adapts a single-timer control to a POST handler
func (s *Server) control(fn controlFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := fn(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleTimerStream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Validate and 404 before upgrading
	if _, err := s.api.GetTimer(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	if err := s.stream.ServeTimer(w, r, id); err != nil {
		if errors.Is(err, gateway.ErrUpgradeFailed) {
			return
		}
		writeError(w, err)
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.NewInvalidInputError("body", nil, "must be a valid JSON object: "+err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps an error to its HTTP status
func statusFor(err error) int {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeInvalidInput, apperrors.ErrorTypeInvalidConfiguration:
		return http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if apperrors.ShouldLogError(err) {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}

	message := apperrors.GetUserMessage(err)
	if _, ok := apperrors.AsAppError(err); !ok {
		message = "An unexpected error occurred. Please try again."
	}
	writeJSON(w, status, errorResponse{Error: message, Code: apperrors.GetErrorCode(err)})
}
