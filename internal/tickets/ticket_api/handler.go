package ticket_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	ticketdb "ms-booking/internal/tickets/db"
	"ms-booking/internal/utils"
)

type TicketService interface {
	CheckIn(ctx context.Context, callerID, bookingID string) (*models.Booking, error)
	Lookup(ctx context.Context, callerID, bookingID string) (*models.Booking, error)
	Stats(ctx context.Context, callerID, eventID string) (*ticketdb.CheckInStats, error)
}

type Handler struct {
	TicketService TicketService
	Validator     *validator.Validate
	Logger        *logger.Logger
}

func NewHandler(s TicketService, l *logger.Logger) *Handler {
	return &Handler{TicketService: s, Validator: utils.NewValidator(), Logger: l}
}

// CheckinTicket handles POST {"booking_id": "..."} from the gate scanner.
func (h *Handler) CheckinTicket(w http.ResponseWriter, r *http.Request) {
	var req models.CheckinRequest
	if err := utils.DecodeAndValidate(r, h.Validator, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CheckinTicket: bookingId=%s", req.BookingID))

	b, err := h.TicketService.CheckIn(r.Context(), auth.UserID(r.Context()), req.BookingID)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CheckinTicket: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Check-in successful", b)
}

func (h *Handler) ViewTicket(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	b, err := h.TicketService.Lookup(r.Context(), auth.UserID(r.Context()), bookingID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket retrieved", b)
}

func (h *Handler) GetCheckInStats(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	stats, err := h.TicketService.Stats(r.Context(), auth.UserID(r.Context()), eventID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Check-in stats retrieved", stats)
}

func (h *Handler) RegisterRoutes(r chi.Router, authMW func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Post("/tickets/checkin", h.CheckinTicket)
		r.Get("/tickets/{bookingId}", h.ViewTicket)
		r.Get("/tickets/events/{eventId}/stats", h.GetCheckInStats)
	})
}
