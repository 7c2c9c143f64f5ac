// Package handlers provides HTTP handlers for amplitude estimation.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aristath/qpricing/internal/modules/estimation"
	"github.com/rs/zerolog"
)

// maxRequestBody caps decoded problem size (a 1024-point grid fits easily)
const maxRequestBody = 1 << 20

// Handler handles estimation HTTP requests
type Handler struct {
	estimator estimation.Estimator
	log       zerolog.Logger
}

// NewHandler creates a new estimation handler
func NewHandler(estimator estimation.Estimator, log zerolog.Logger) *Handler {
	return &Handler{
		estimator: estimator,
		log:       log.With().Str("handler", "estimation").Logger(),
	}
}

// HandleEstimate handles POST /api/estimation/estimate.
// The request codec follows Content-Type and the response codec follows Accept.
func (h *Handler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	reqCodec := estimation.CodecForContentType(r.Header.Get("Content-Type"))
	respCodec := reqCodec
	if codec, ok := estimation.AcceptedCodec(r.Header.Get("Accept")); ok {
		respCodec = codec
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var problem estimation.Problem
	if err := reqCodec.Unmarshal(data, &problem); err != nil {
		h.log.Error().Err(err).Str("codec", reqCodec.Name()).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	result, err := h.estimator.Estimate(r.Context(), problem)
	if err != nil {
		if errors.Is(err, estimation.ErrInvalidProblem) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("Estimation failed")
		http.Error(w, "Estimation failed", http.StatusInternalServerError)
		return
	}

	h.log.Info().
		Str("backend", result.Backend).
		Int("grid_points", len(problem.Distribution.Values)).
		Int("evaluation_qubits", problem.EvaluationQubits).
		Float64("estimation", result.Estimation).
		Dur("duration", time.Since(start)).
		Msg("Estimation served")

	body, err := respCodec.Marshal(result)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode estimation result")
		http.Error(w, "Failed to encode result", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", respCodec.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.log.Error().Err(err).Msg("Failed to write estimation response")
	}
}

// HandleGetBackends handles GET /api/estimation/backends
func (h *Handler) HandleGetBackends(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"data": map[string]interface{}{
			"backend":               h.estimator.Name(),
			"max_evaluation_qubits": estimation.MaxEvaluationQubits,
			"codecs":                []string{estimation.JSON.Name(), estimation.Msgpack.Name()},
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
