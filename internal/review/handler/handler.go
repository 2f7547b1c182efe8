// Package handler exposes the human review workflow over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"titleguard/internal/claims/models"
	"titleguard/internal/review"
	"titleguard/internal/spatial"
	id "titleguard/pkg/domain"
	dErrors "titleguard/pkg/domain-errors"
	"titleguard/pkg/platform/httputil"
	"titleguard/pkg/requestcontext"
)

type Handler struct {
	service *review.Service
	logger  *slog.Logger
}

func New(service *review.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the review endpoints on an authenticated router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/claims/review", h.ListPendingReview)
	r.Patch("/claims/{claimID}/review", h.ReviewClaim)
	r.Patch("/conflicts/{conflictID}", h.ResolveConflict)
}

type claimResponse struct {
	ID              string   `json:"id"`
	OwnerID         string   `json:"owner_id"`
	Lat             float64  `json:"lat"`
	Lng             float64  `json:"lng"`
	GrantorName     string   `json:"grantor_name"`
	Status          string   `json:"status"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
	ConfidenceLevel string   `json:"confidence_level,omitempty"`
	ReviewedBy      string   `json:"reviewed_by,omitempty"`
	ReviewNotes     string   `json:"review_notes,omitempty"`
	ReviewedAt      string   `json:"reviewed_at,omitempty"`
}

func toClaimResponse(c *models.Claim) claimResponse {
	resp := claimResponse{
		ID:              c.ID.String(),
		OwnerID:         c.OwnerID.String(),
		Lat:             c.Lat,
		Lng:             c.Lng,
		GrantorName:     c.GrantorName,
		Status:          string(c.Status),
		ConfidenceLevel: string(c.ConfidenceLevel),
		ReviewNotes:     c.ReviewNotes,
	}
	if c.ConfidenceScore > 0 {
		score := c.ConfidenceScore
		resp.ConfidenceScore = &score
	}
	if c.ReviewedBy != nil {
		resp.ReviewedBy = c.ReviewedBy.String()
	}
	if c.ReviewedAt != nil {
		resp.ReviewedAt = c.ReviewedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) ListPendingReview(w http.ResponseWriter, r *http.Request) {
	claims, err := h.service.ListPendingReview(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing review queue failed",
			"user_id", requestcontext.UserID(r.Context()).String(), "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "listing review queue"))
		return
	}

	out := make([]claimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, toClaimResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"claims": out})
}

type reviewRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

func (h *Handler) ReviewClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid claim id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[reviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	claim, err := h.service.Review(ctx, claimID, review.Action(req.Action), req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toClaimResponse(claim))
}

type resolveConflictRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type conflictResponse struct {
	ID                 string  `json:"id"`
	ClaimID            string  `json:"claim_id"`
	ConflictingClaimID string  `json:"conflicting_claim_id"`
	OverlapPercentage  float64 `json:"overlap_percentage"`
	Severity           string  `json:"severity"`
	Status             string  `json:"status"`
	ResolutionNotes    string  `json:"resolution_notes,omitempty"`
	ReviewedBy         string  `json:"reviewed_by,omitempty"`
}

func (h *Handler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conflictID, err := id.ParseConflictID(chi.URLParam(r, "conflictID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid conflict id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[resolveConflictRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	conflict, err := h.service.ResolveConflict(ctx, conflictID, spatial.ConflictStatus(req.Status), req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := conflictResponse{
		ID:                 conflict.ID.String(),
		ClaimID:            conflict.ClaimID.String(),
		ConflictingClaimID: conflict.ConflictingClaimID.String(),
		OverlapPercentage:  conflict.OverlapPercentage,
		Severity:           string(conflict.Severity),
		Status:             string(conflict.Status),
		ResolutionNotes:    conflict.ResolutionNotes,
	}
	if conflict.ReviewedBy != nil {
		resp.ReviewedBy = conflict.ReviewedBy.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
