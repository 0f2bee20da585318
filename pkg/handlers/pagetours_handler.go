package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/guidepost-labs/guidepost-engine/pkg/apperrors"
	"github.com/guidepost-labs/guidepost-engine/pkg/identity"
	"github.com/guidepost-labs/guidepost-engine/pkg/models"
	"github.com/guidepost-labs/guidepost-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// PageTour is the client engine's view of one resolved tour. Field names
// are part of the wire contract and must not change.
type PageTour struct {
	TourID       int64                  `json:"tour_id"`
	Name         string                 `json:"tour_name"`
	Description  string                 `json:"tour_description"`
	ShowProgress bool                   `json:"show_progress"`
	Steps        []*models.Step         `json:"steps"`
	UserTracking models.TrackingSummary `json:"user_tracking"`
}

// AutoStart names the tour the client engine should start on page load.
type AutoStart struct {
	TourID int64  `json:"tour_id"`
	Reason string `json:"reason"`
}

// PageToursResponse for GET /api/page-tours
type PageToursResponse struct {
	Tours     []*PageTour `json:"tours"`
	AutoStart *AutoStart  `json:"auto_start"`
}

// TrackRequest for POST /api/track
type TrackRequest struct {
	TourID        int64  `json:"tour_id"`
	ActionType    string `json:"action_type"`
	PageURL       string `json:"page_url"`
	StepCompleted int    `json:"step_completed"`
}

// TrackResponse acknowledges a tracking report. Recorded is false when the
// interaction could not be persisted; the client never retries.
type TrackResponse struct {
	Recorded bool `json:"recorded"`
}

// TriggerResponse for GET /api/tours/{tourID}/trigger. The host page
// renderer turns this descriptor into a start button.
type TriggerResponse struct {
	TourID     int64  `json:"tour_id"`
	ButtonText string `json:"button_text"`
	CSSClass   string `json:"css_class"`
}

// ============================================================================
// Handler
// ============================================================================

// PageTourHandler serves the public tour resolution and tracking endpoints
// consumed by the client engine.
type PageTourHandler struct {
	queryService    services.TourQueryService
	trackingService services.TrackingService
	logger          *zap.Logger
}

// NewPageTourHandler creates a new page tour handler.
func NewPageTourHandler(
	queryService services.TourQueryService,
	trackingService services.TrackingService,
	logger *zap.Logger,
) *PageTourHandler {
	return &PageTourHandler{
		queryService:    queryService,
		trackingService: trackingService,
		logger:          logger,
	}
}

// RegisterRoutes registers the public routes on the given mux. Every route
// resolves a viewer but never requires authentication.
func (h *PageTourHandler) RegisterRoutes(mux *http.ServeMux, auth *identity.Middleware, scoped Middleware) {
	public := func(next http.HandlerFunc) http.HandlerFunc {
		return auth.ResolveViewer(scoped(next))
	}

	mux.HandleFunc("GET /api/page-tours", public(h.PageTours))
	mux.HandleFunc("GET /api/tours/{tourID}/resolve", public(h.Resolve))
	mux.HandleFunc("POST /api/track", public(h.Track))
	mux.HandleFunc("GET /api/tours/{tourID}/trigger", public(h.Trigger))
}

// PageTours handles GET /api/page-tours?current_url=...
// Returns every startable tour for the page plus the auto-start decision.
func (h *PageTourHandler) PageTours(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("current_url")
	if pageURL == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_current_url", "current_url query parameter is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	viewer, _ := identity.GetViewer(r.Context())

	resolved, err := h.queryService.ResolvePageTours(r.Context(), pageURL, viewer)
	if err != nil {
		h.logger.Error("Failed to resolve page tours",
			zap.String("page_url", pageURL),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "resolve_page_tours_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	decision, err := h.queryService.SelectTrigger(r.Context(), pageURL, r.URL.Query(), viewer)
	if err != nil {
		// A failed trigger decision degrades to no auto-start; the tour
		// list is still usable.
		h.logger.Warn("Failed to select trigger tour",
			zap.String("page_url", pageURL),
			zap.Error(err))
		decision = services.TriggerDecision{}
	}

	response := PageToursResponse{Tours: make([]*PageTour, 0, len(resolved))}
	for _, rt := range resolved {
		response.Tours = append(response.Tours, pageTourFrom(rt))
	}
	if decision.Tour != nil {
		response.AutoStart = &AutoStart{
			TourID: decision.Tour.Tour.ID,
			Reason: decision.Reason,
		}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Resolve handles GET /api/tours/{tourID}/resolve?current_url=...
// Loads one tour with its page-filtered steps and the viewer's tracking.
func (h *PageTourHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	tourID, ok := ParseTourID(w, r, h.logger)
	if !ok {
		return
	}

	pageURL := r.URL.Query().Get("current_url")
	viewer, _ := identity.GetViewer(r.Context())

	resolved, err := h.queryService.ResolveTourForPage(r.Context(), tourID, pageURL, viewer)
	if err != nil {
		h.logger.Error("Failed to resolve tour",
			zap.Int64("tour_id", tourID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "resolve_tour_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if resolved == nil {
		if err := ErrorResponse(w, http.StatusNotFound, "tour_not_found", "Tour not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, pageTourFrom(resolved)); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Track handles POST /api/track. Storage failures are acknowledged with
// recorded=false rather than a 5xx so a walkthrough in progress never
// breaks on a reporting error.
func (h *PageTourHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	viewer, _ := identity.GetViewer(r.Context())

	err := h.trackingService.RecordInteraction(r.Context(), viewer, req.TourID, req.ActionType, req.PageURL, req.StepCompleted)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		h.logger.Error("Failed to record interaction",
			zap.Int64("tour_id", req.TourID),
			zap.String("action", req.ActionType),
			zap.Error(err))
		if err := WriteJSON(w, http.StatusOK, TrackResponse{Recorded: false}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, TrackResponse{Recorded: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Trigger handles GET /api/tours/{tourID}/trigger?text=...&class=...
// Returns the start-button descriptor for an embeddable tour trigger.
func (h *PageTourHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	tourID, ok := ParseTourID(w, r, h.logger)
	if !ok {
		return
	}

	viewer, _ := identity.GetViewer(r.Context())

	resolved, err := h.queryService.ResolveTourForPage(r.Context(), tourID, "", viewer)
	if err != nil {
		h.logger.Error("Failed to resolve trigger tour",
			zap.Int64("tour_id", tourID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "resolve_tour_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if resolved == nil || !resolved.Tour.IsActive {
		if err := ErrorResponse(w, http.StatusNotFound, "tour_not_found", "Tour not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	text := r.URL.Query().Get("text")
	if text == "" {
		text = "Start Tour"
	}
	class := r.URL.Query().Get("class")
	if class == "" {
		class = "guidepost-tour-trigger"
	}

	response := TriggerResponse{
		TourID:     tourID,
		ButtonText: text,
		CSSClass:   class,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func pageTourFrom(rt *services.ResolvedTour) *PageTour {
	return &PageTour{
		TourID:       rt.Tour.ID,
		Name:         rt.Tour.Name,
		Description:  rt.Tour.Description,
		ShowProgress: rt.Tour.ShowProgress,
		Steps:        rt.Steps,
		UserTracking: rt.Tracking,
	}
}
