package affiliate_api

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

type AffiliateService interface {
	Balance(ctx context.Context, affiliateID string) (*models.BalanceResponse, error)
	RequestWithdrawal(ctx context.Context, callerID string, p models.WithdrawalRequestPayload) (*models.WithdrawalRequest, error)
	ProcessWithdrawal(ctx context.Context, callerID, id string, p models.ProcessWithdrawalPayload) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, callerID string) ([]models.WithdrawalRequest, error)
	ListCommissions(ctx context.Context, callerID string) ([]models.Commission, error)
}

type Handler struct {
	AffiliateService AffiliateService
	Validator        *validator.Validate
	Logger           *logger.Logger
}

func NewHandler(s AffiliateService, l *logger.Logger) *Handler {
	return &Handler{AffiliateService: s, Validator: utils.NewValidator(), Logger: l}
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.AffiliateService.Balance(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Balance retrieved", b)
}

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req models.WithdrawalRequestPayload
	if err := utils.DecodeAndValidate(r, h.Validator, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	callerID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("RequestWithdrawal: user=%s amount=%s", callerID, req.Amount.String()))

	wr, err := h.AffiliateService.RequestWithdrawal(r.Context(), callerID, req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("RequestWithdrawal: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Withdrawal request created", wr)
}

func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := h.AffiliateService.ListWithdrawals(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Withdrawals retrieved", list)
}

func (h *Handler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	list, err := h.AffiliateService.ListCommissions(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Commissions retrieved", list)
}

// ProcessWithdrawal handles POST {"action": "approve"|"reject"} from an admin.
func (h *Handler) ProcessWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.ProcessWithdrawalPayload
	if err := utils.DecodeAndValidate(r, h.Validator, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	callerID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("ProcessWithdrawal: id=%s action=%s admin=%s", id, req.Action, callerID))

	wr, err := h.AffiliateService.ProcessWithdrawal(r.Context(), callerID, id, req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("ProcessWithdrawal: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("Withdrawal %s", wr.Status), wr)
}

func (h *Handler) RegisterRoutes(r chi.Router, authMW func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Get("/affiliate/balance", h.GetBalance)
		r.Get("/affiliate/commissions", h.ListCommissions)
		r.Post("/affiliate/withdrawals", h.RequestWithdrawal)
		r.Get("/affiliate/withdrawals", h.ListWithdrawals)
		r.Post("/admin/withdrawals/{id}/process", h.ProcessWithdrawal)
	})
}
