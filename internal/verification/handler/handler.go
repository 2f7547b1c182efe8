// Package handler exposes the verification engine over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"titleguard/internal/docintel"
	"titleguard/internal/verification"
	id "titleguard/pkg/domain"
	dErrors "titleguard/pkg/domain-errors"
	"titleguard/pkg/platform/httputil"
	"titleguard/pkg/requestcontext"
)

type Handler struct {
	service  *verification.Service
	analyzer docintel.Analyzer
	logger   *slog.Logger
}

func New(service *verification.Service, analyzer docintel.Analyzer, logger *slog.Logger) *Handler {
	return &Handler{service: service, analyzer: analyzer, logger: logger}
}

// RegisterRoutes mounts the verification endpoints on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/claims/{claimID}/verify", h.StartVerification)
	r.Get("/verification/capabilities", h.Capabilities)
}

type agentResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Details    []string `json:"details,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

type verifyResponse struct {
	Status          string                   `json:"status"`
	Confidence      float64                  `json:"confidence"`
	ConfidenceLevel string                   `json:"confidence_level"`
	Recommendation  string                   `json:"recommendation"`
	HITLOverride    bool                     `json:"hitl_override,omitempty"`
	Reasoning       string                   `json:"reasoning"`
	FraudIndicators []string                 `json:"fraud_indicators,omitempty"`
	Breakdown       map[string]agentResponse `json:"breakdown"`
}

func (h *Handler) StartVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid claim id"))
		return
	}

	result, err := h.service.StartVerification(ctx, requestcontext.UserID(ctx), claimID)
	if err != nil {
		if errors.Is(err, verification.ErrPotentialConflict) {
			httputil.WriteNamedError(w, http.StatusConflict, "POTENTIAL_CONFLICT",
				"an approved claim exists in the immediate vicinity")
			return
		}
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "verification pipeline failed",
				"claim_id", claimID.String(), "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	breakdown := make(map[string]agentResponse, len(result.Breakdown))
	for kind, res := range result.Breakdown {
		breakdown[string(kind)] = agentResponse{
			Success:    res.Success,
			Score:      res.Score,
			Details:    res.Details,
			Error:      res.Err,
			DurationMS: res.Duration.Milliseconds(),
		}
	}

	httputil.WriteJSON(w, http.StatusOK, verifyResponse{
		Status:          string(result.Status),
		Confidence:      result.OverallConfidence,
		ConfidenceLevel: string(result.Level),
		Recommendation:  string(result.Recommendation),
		HITLOverride:    result.HITLOverride,
		Reasoning:       result.Reasoning,
		FraudIndicators: result.FraudIndicators,
		Breakdown:       breakdown,
	})
}

type capabilitiesResponse struct {
	FraudDetection     bool `json:"fraud_detection"`
	TamperingDetection bool `json:"tampering_detection"`
}

// Capabilities reports which document checks are live given the current
// collaborator configuration.
func (h *Handler) Capabilities(w http.ResponseWriter, r *http.Request) {
	enabled := h.analyzer.Enabled()
	httputil.WriteJSON(w, http.StatusOK, capabilitiesResponse{
		FraudDetection:     enabled,
		TamperingDetection: enabled,
	})
}
