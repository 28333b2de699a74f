package catalog_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type CatalogService interface {
	ListEvents(ctx context.Context, category string) ([]models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, callerID, id string, p models.EventPatch) (*models.Event, error)
	CreateCoupon(ctx context.Context, callerID string, p models.CouponPayload) (*models.Coupon, error)
	UpdateCoupon(ctx context.Context, callerID, code string, p models.CouponPatch) (*models.Coupon, error)
	ValidateCoupon(ctx context.Context, req models.CouponCheckRequest) (*models.CouponCheckResponse, error)
}

type Handler struct {
	CatalogService CatalogService
	Validator      *validator.Validate
	Logger         *logger.Logger
}

func NewHandler(s CatalogService, l *logger.Logger) *Handler {
	return &Handler{CatalogService: s, Validator: utils.NewValidator(), Logger: l}
}

// ListEvents accepts an optional ?category= filter.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.CatalogService.ListEvents(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Events retrieved", events)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.CatalogService.GetEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event retrieved", event)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	var req models.EventPatch
	if err := utils.DecodeAndValidate(r, h.Validator, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpdateEvent: eventId=%s", eventID))

	event, err := h.CatalogService.UpdateEvent(r.Context(), auth.UserID(r.Context()), eventID, req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("UpdateEvent: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event updated", event)
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req models.CouponPayload
	if err := utils.DecodeAndValidate(r, h.Validator, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateCoupon: code=%s", req.Code))

	c, err := h.CatalogService.CreateCoupon(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateCoupon: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Coupon created", c)
}

func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req models.CouponPatch
	if err := utils.DecodeAndValidate(r, h.Validator, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpdateCoupon: code=%s", code))

	c, err := h.CatalogService.UpdateCoupon(r.Context(), auth.UserID(r.Context()), code, req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("UpdateCoupon: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Coupon updated", c)
}

func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req models.CouponCheckRequest
	if err := utils.DecodeAndValidate(r, h.Validator, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	resp, err := h.CatalogService.ValidateCoupon(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Coupon checked", resp)
}

func (h *Handler) RegisterRoutes(r chi.Router, authMW func(http.Handler) http.Handler) {
	r.Get("/events", h.ListEvents)
	r.Get("/events/{eventId}", h.GetEvent)

	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Post("/coupons/validate", h.ValidateCoupon)
		r.Post("/admin/coupons", h.CreateCoupon)
		r.Post("/admin/coupons/{code}", h.UpdateCoupon)
		r.Post("/admin/events/{eventId}", h.UpdateEvent)
	})
}
