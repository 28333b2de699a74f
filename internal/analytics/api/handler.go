package analytics_api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"ms-booking/internal/analytics"
	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

// AnalyticsService is what the handler needs from the analytics service
type AnalyticsService interface {
	GetEventAnalytics(ctx context.Context, callerID, eventID string) (*analytics.EventAnalytics, error)
	GetBatchEventAnalytics(ctx context.Context, callerID string, eventIDs []string) (*analytics.EventAnalytics, error)
	GetEventDiscountAnalytics(ctx context.Context, callerID, eventID string) (*analytics.EventDiscountAnalytics, error)
	GetEventBookings(ctx context.Context, callerID, eventID string, opts analytics.EventBookingOptions) ([]models.Booking, error)
}

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service   AnalyticsService
	Validator *validator.Validate
	Logger    *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(s AnalyticsService, l *logger.Logger) *Handler {
	return &Handler{Service: s, Validator: utils.NewValidator(), Logger: l}
}

// RegisterRoutes registers the admin analytics routes on an /api router
func (h *Handler) RegisterRoutes(r chi.Router, authMW func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Route("/admin/analytics", func(r chi.Router) {
			r.Get("/events/{eventId}", h.GetEventAnalytics)
			r.Get("/events/{eventId}/discounts", h.GetEventDiscountAnalytics)
			r.Get("/events/{eventId}/bookings", h.GetEventBookings)
			r.Post("/events/batch", h.GetBatchEventAnalytics)
		})
	})
}

// GetEventAnalytics handles the paid-sales summary of an event
func (h *Handler) GetEventAnalytics(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	result, err := h.Service.GetEventAnalytics(r.Context(), auth.UserID(r.Context()), eventID)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Error getting event analytics: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event analytics retrieved", result)
}

// GetEventDiscountAnalytics handles coupon usage analytics for an event
func (h *Handler) GetEventDiscountAnalytics(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	result, err := h.Service.GetEventDiscountAnalytics(r.Context(), auth.UserID(r.Context()), eventID)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Error getting discount analytics: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Discount analytics retrieved", result)
}

type batchRequest struct {
	EventIDs []string `json:"event_ids" validate:"required,min=1,max=100,dive,required"`
}

// GetBatchEventAnalytics handles aggregated analytics across several events
func (h *Handler) GetBatchEventAnalytics(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := utils.DecodeAndValidate(r, h.Validator, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	result, err := h.Service.GetBatchEventAnalytics(r.Context(), auth.UserID(r.Context()), req.EventIDs)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Error getting batch analytics: %v", err))
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("ANALYTICS", fmt.Sprintf("Returning aggregated analytics for %d events", len(result.EventIDs)))
	utils.WriteSuccess(w, http.StatusOK, "Batch analytics retrieved", result)
}

// GetEventBookings lists bookings of an event. Query: status, sort, order=desc, limit, offset.
func (h *Handler) GetEventBookings(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	q := r.URL.Query()
	opts := analytics.EventBookingOptions{
		Status:   models.PaymentStatus(strings.ToLower(q.Get("status"))),
		SortBy:   q.Get("sort"),
		SortDesc: q.Get("order") == "desc",
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		opts.Offset = offset
	}

	bookings, err := h.Service.GetEventBookings(r.Context(), auth.UserID(r.Context()), eventID, opts)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Error getting event bookings: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event bookings retrieved", bookings)
}
