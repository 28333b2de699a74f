package booking_api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"ms-booking/internal/apperrors"
	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type BookingService interface {
	InitiateBooking(ctx context.Context, callerID string, req models.BookingRequest) (*models.BookingResponse, error)
	GetBooking(ctx context.Context, callerID, id string) (*models.Booking, error)
	HandleNotification(ctx context.Context, n models.MidtransNotification) (*booking.WebhookResult, error)
}

type Handler struct {
	BookingService BookingService
	Validator      *validator.Validate
	Logger         *logger.Logger
}

func NewHandler(s BookingService, l *logger.Logger) *Handler {
	return &Handler{BookingService: s, Validator: utils.NewValidator(), Logger: l}
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	callerID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("CreateBooking: user=%s", callerID))

	var req models.BookingRequest
	if err := utils.DecodeAndValidate(r, h.Validator, &req); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateBooking: invalid payload: %v", err))
		utils.WriteError(w, err)
		return
	}

	resp, err := h.BookingService.InitiateBooking(r.Context(), callerID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBooking: %v", err))
		utils.WriteError(w, err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("CreateBooking: booking %s created", resp.BookingID))
	utils.WriteSuccess(w, http.StatusCreated, "Booking created, awaiting payment", resp)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	h.Logger.Info("API", fmt.Sprintf("GetBooking: bookingId=%s", bookingID))

	b, err := h.BookingService.GetBooking(r.Context(), auth.UserID(r.Context()), bookingID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBooking: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking retrieved", b)
}

// MidtransNotification is called by the gateway, not by users, so it sits
// outside the bearer-auth group and relies on the payload signature.
func (h *Handler) MidtransNotification(w http.ResponseWriter, r *http.Request) {
	var n models.MidtransNotification
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&n); err != nil {
		h.Logger.Warn("WEBHOOK", fmt.Sprintf("MidtransNotification: invalid body: %v", err))
		utils.WriteError(w, apperrors.Validation("invalid notification payload"))
		return
	}
	if n.OrderID == "" {
		utils.WriteError(w, apperrors.Validation("order_id is required"))
		return
	}
	h.Logger.LogWebhook(n.OrderID, n.TransactionStatus, "notification received")

	res, err := h.BookingService.HandleNotification(r.Context(), n)
	if err != nil {
		h.Logger.Error("WEBHOOK", fmt.Sprintf("MidtransNotification: order %s: %v", n.OrderID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Notification processed", res)
}

// RegisterRoutes mounts the booking endpoints on an /api router.
func (h *Handler) RegisterRoutes(r chi.Router, authMW func(http.Handler) http.Handler) {
	r.Post("/payments/midtrans/notification", h.MidtransNotification)
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Post("/bookings", h.CreateBooking)
		r.Get("/bookings/{bookingId}", h.GetBooking)
	})
}
