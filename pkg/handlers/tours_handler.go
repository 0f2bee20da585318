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

// CreateTourRequest for POST /api/tours
type CreateTourRequest struct {
	Name         string `json:"tour_name"`
	Description  string `json:"tour_description"`
	TriggerType  string `json:"tour_trigger_type"`
	TriggerValue string `json:"tour_trigger_value"`
	ShowProgress *bool  `json:"show_progress"`
	IsActive     *bool  `json:"is_active"`
}

// UpdateTourRequest for PUT /api/tours/{tourID}. Absent fields are left
// unchanged.
type UpdateTourRequest struct {
	Name         *string `json:"tour_name"`
	Description  *string `json:"tour_description"`
	TriggerType  *string `json:"tour_trigger_type"`
	TriggerValue *string `json:"tour_trigger_value"`
	ShowProgress *bool   `json:"show_progress"`
	IsActive     *bool   `json:"is_active"`
}

// TourListResponse for GET /api/tours
type TourListResponse struct {
	Tours []*models.Tour `json:"tours"`
	Total int            `json:"total"`
}

// TourDetailResponse for GET /api/tours/{tourID}
type TourDetailResponse struct {
	Tour  *models.Tour   `json:"tour"`
	Steps []*models.Step `json:"steps"`
}

// CreateStepRequest for POST /api/tours/{tourID}/steps
type CreateStepRequest struct {
	Order          *int   `json:"step_order"`
	Title          string `json:"step_title"`
	Content        string `json:"step_content"`
	TargetSelector string `json:"target_selector"`
	Position       string `json:"step_position"`
	PageURLPattern string `json:"page_url_pattern"`
	IsActive       *bool  `json:"is_active"`
}

// UpdateStepRequest for PUT /api/steps/{stepID}. Absent fields are left
// unchanged.
type UpdateStepRequest struct {
	Order          *int    `json:"step_order"`
	Title          *string `json:"step_title"`
	Content        *string `json:"step_content"`
	TargetSelector *string `json:"target_selector"`
	Position       *string `json:"step_position"`
	PageURLPattern *string `json:"page_url_pattern"`
	IsActive       *bool   `json:"is_active"`
}

// ReorderStepsRequest for POST /api/tours/{tourID}/steps/reorder. Step IDs
// in the desired display order; positions are reassigned 1-based.
type ReorderStepsRequest struct {
	StepIDs []int64 `json:"step_ids"`
}

// StatsResponse for the stats endpoints.
type StatsResponse struct {
	Stats []*models.StatusStat `json:"stats"`
}

// ============================================================================
// Handler
// ============================================================================

// TourHandler handles the admin tour builder HTTP requests.
type TourHandler struct {
	tourService services.TourService
	logger      *zap.Logger
}

// NewTourHandler creates a new tour handler.
func NewTourHandler(tourService services.TourService, logger *zap.Logger) *TourHandler {
	return &TourHandler{
		tourService: tourService,
		logger:      logger,
	}
}

// Middleware wraps a handler with per-request concerns (database scope,
// request logging).
type Middleware func(http.HandlerFunc) http.HandlerFunc

// RegisterRoutes registers the tour handler's routes on the given mux.
// Every route requires an authenticated admin.
func (h *TourHandler) RegisterRoutes(mux *http.ServeMux, auth *identity.Middleware, scoped Middleware) {
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return auth.ResolveViewer(auth.RequireAdmin(scoped(next)))
	}

	mux.HandleFunc("POST /api/tours", admin(h.Create))
	mux.HandleFunc("GET /api/tours", admin(h.List))
	mux.HandleFunc("GET /api/tours/{tourID}", admin(h.Get))
	mux.HandleFunc("PUT /api/tours/{tourID}", admin(h.Update))
	mux.HandleFunc("DELETE /api/tours/{tourID}", admin(h.Delete))
	mux.HandleFunc("POST /api/tours/{tourID}/steps", admin(h.CreateStep))
	mux.HandleFunc("PUT /api/steps/{stepID}", admin(h.UpdateStep))
	mux.HandleFunc("DELETE /api/steps/{stepID}", admin(h.DeleteStep))
	mux.HandleFunc("POST /api/tours/{tourID}/steps/reorder", admin(h.ReorderSteps))
	mux.HandleFunc("GET /api/tours/{tourID}/stats", admin(h.TourStats))
	mux.HandleFunc("GET /api/stats", admin(h.Stats))
}

// Create handles POST /api/tours
func (h *TourHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	tour := &models.Tour{
		Name:         req.Name,
		Description:  req.Description,
		TriggerType:  req.TriggerType,
		TriggerValue: req.TriggerValue,
		ShowProgress: req.ShowProgress == nil || *req.ShowProgress,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}

	if err := h.tourService.CreateTour(r.Context(), tour); err != nil {
		h.logger.Error("Failed to create tour",
			zap.String("tour_name", req.Name),
			zap.Error(err))

		if errors.Is(err, apperrors.ErrValidation) {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		if err := ErrorResponse(w, http.StatusInternalServerError, "create_tour_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: tour}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/tours
func (h *TourHandler) List(w http.ResponseWriter, r *http.Request) {
	tours, err := h.tourService.ListTours(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tours", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_tours_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := TourListResponse{
		Tours: tours,
		Total: len(tours),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/tours/{tourID}
func (h *TourHandler) Get(w http.ResponseWriter, r *http.Request) {
	tourID, ok := ParseTourID(w, r, h.logger)
	if !ok {
		return
	}

	tour, err := h.tourService.GetTour(r.Context(), tourID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "tour_not_found", "Tour not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get tour",
			zap.Int64("tour_id", tourID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_tour_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	steps, err := h.tourService.ListSteps(r.Context(), tourID)
	if err != nil {
		h.logger.Error("Failed to list tour steps",
			zap.Int64("tour_id", tourID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_steps_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := TourDetailResponse{
		Tour:  tour,
		Steps: steps,
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/tours/{tourID}
func (h *TourHandler) Update(w http.ResponseWriter, r *http.Request) {
	tourID, ok := ParseTourID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateTourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	update := &models.TourUpdate{
		Name:         req.Name,
		Description:  req.Description,
		TriggerType:  req.TriggerType,
		TriggerValue: req.TriggerValue,
		ShowProgress: req.ShowProgress,
		IsActive:     req.IsActive,
	}

	if err := h.tourService.UpdateTour(r.Context(), tourID, update); err != nil {
		h.writeUpdateError(w, err, "tour_not_found", "Tour not found", "update_tour_failed")
		return
	}

	tour, err := h.tourService.GetTour(r.Context(), tourID)
	if err != nil {
		h.logger.Error("Failed to get updated tour",
			zap.Int64("tour_id", tourID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_tour_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tour}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/tours/{tourID}. Steps and tracking rows go
// with the tour via ON DELETE CASCADE.
func (h *TourHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tourID, ok := ParseTourID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.tourService.DeleteTour(r.Context(), tourID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "tour_not_found", "Tour not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to delete tour",
			zap.Int64("tour_id", tourID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "delete_tour_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "deleted"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CreateStep handles POST /api/tours/{tourID}/steps
func (h *TourHandler) CreateStep(w http.ResponseWriter, r *http.Request) {
	tourID, ok := ParseTourID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	step := &models.Step{
		TourID:         tourID,
		Title:          req.Title,
		Content:        req.Content,
		TargetSelector: req.TargetSelector,
		Position:       req.Position,
		PageURLPattern: req.PageURLPattern,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if req.Order != nil {
		step.Order = *req.Order
	}

	if err := h.tourService.CreateStep(r.Context(), step); err != nil {
		h.logger.Error("Failed to create step",
			zap.Int64("tour_id", tourID),
			zap.Error(err))

		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "tour_not_found", "Tour not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if errors.Is(err, apperrors.ErrValidation) {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		if err := ErrorResponse(w, http.StatusInternalServerError, "create_step_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: step}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateStep handles PUT /api/steps/{stepID}
func (h *TourHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	stepID, ok := ParseStepID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	update := &models.StepUpdate{
		Order:          req.Order,
		Title:          req.Title,
		Content:        req.Content,
		TargetSelector: req.TargetSelector,
		Position:       req.Position,
		PageURLPattern: req.PageURLPattern,
		IsActive:       req.IsActive,
	}

	if err := h.tourService.UpdateStep(r.Context(), stepID, update); err != nil {
		h.writeUpdateError(w, err, "step_not_found", "Step not found", "update_step_failed")
		return
	}

	step, err := h.tourService.GetStep(r.Context(), stepID)
	if err != nil {
		h.logger.Error("Failed to get updated step",
			zap.Int64("step_id", stepID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_step_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: step}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteStep handles DELETE /api/steps/{stepID}
func (h *TourHandler) DeleteStep(w http.ResponseWriter, r *http.Request) {
	stepID, ok := ParseStepID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.tourService.DeleteStep(r.Context(), stepID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "step_not_found", "Step not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to delete step",
			zap.Int64("step_id", stepID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "delete_step_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "deleted"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ReorderSteps handles POST /api/tours/{tourID}/steps/reorder
func (h *TourHandler) ReorderSteps(w http.ResponseWriter, r *http.Request) {
	tourID, ok := ParseTourID(w, r, h.logger)
	if !ok {
		return
	}

	var req ReorderStepsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.tourService.ReorderSteps(r.Context(), tourID, req.StepIDs); err != nil {
		h.logger.Error("Failed to reorder steps",
			zap.Int64("tour_id", tourID),
			zap.Error(err))

		if errors.Is(err, apperrors.ErrValidation) {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "tour_not_found", "Tour not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		if err := ErrorResponse(w, http.StatusInternalServerError, "reorder_steps_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	steps, err := h.tourService.ListSteps(r.Context(), tourID)
	if err != nil {
		h.logger.Error("Failed to list reordered steps",
			zap.Int64("tour_id", tourID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_steps_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: steps}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// TourStats handles GET /api/tours/{tourID}/stats
func (h *TourHandler) TourStats(w http.ResponseWriter, r *http.Request) {
	tourID, ok := ParseTourID(w, r, h.logger)
	if !ok {
		return
	}
	h.writeStats(w, r, tourID)
}

// Stats handles GET /api/stats. Aggregates across all tours.
func (h *TourHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeStats(w, r, 0)
}

func (h *TourHandler) writeStats(w http.ResponseWriter, r *http.Request, tourID int64) {
	stats, err := h.tourService.Stats(r.Context(), tourID)
	if err != nil {
		h.logger.Error("Failed to load tracking stats",
			zap.Int64("tour_id", tourID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "stats_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: StatsResponse{Stats: stats}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *TourHandler) writeUpdateError(w http.ResponseWriter, err error, notFoundCode, notFoundMessage, failCode string) {
	switch {
	case errors.Is(err, apperrors.ErrEmptyUpdate):
		if err := ErrorResponse(w, http.StatusBadRequest, "empty_update", "No fields to update"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
	case errors.Is(err, apperrors.ErrValidation):
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
	case errors.Is(err, apperrors.ErrNotFound):
		if err := ErrorResponse(w, http.StatusNotFound, notFoundCode, notFoundMessage); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
	default:
		h.logger.Error("Update failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, failCode, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
	}
}
