package affiliate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	affiliatedb "ms-booking/internal/affiliate/db"
	"ms-booking/internal/apperrors"
	"ms-booking/internal/auth"
	"ms-booking/internal/database"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

const claimAttempts = 3

type DBLayer interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	AvailableCommissions(ctx context.Context, affiliateID string) ([]models.Commission, error)
	ListCommissions(ctx context.Context, affiliateID string) ([]models.Commission, error)
	CreateWithdrawal(ctx context.Context, w *models.WithdrawalRequest, commissionIDs []string) error
	GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, affiliateID string) ([]models.WithdrawalRequest, error)
	ProcessWithdrawal(ctx context.Context, id string, p affiliatedb.ProcessParams) (*models.WithdrawalRequest, error)
}

type EventPublisher interface {
	PublishWithdrawalProcessed(ctx context.Context, w *models.WithdrawalRequest) error
}

type Recorder interface {
	Withdrawal(stage string)
}

type AffiliateService struct {
	DB      DBLayer
	Authz   auth.AuthorizationChecker
	Events  EventPublisher
	Metrics Recorder
	Logger  *logger.Logger
	now     func() time.Time
}

func NewAffiliateService(db DBLayer, authz auth.AuthorizationChecker, events EventPublisher, metrics Recorder, l *logger.Logger) *AffiliateService {
	return &AffiliateService{
		DB:      db,
		Authz:   authz,
		Events:  events,
		Metrics: metrics,
		Logger:  l,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Balance is the sum of pending commissions not yet claimed by a withdrawal.
func (s *AffiliateService) Balance(ctx context.Context, affiliateID string) (*models.BalanceResponse, error) {
	commissions, err := s.DB.AvailableCommissions(ctx, affiliateID)
	if err != nil {
		return nil, apperrors.Persistence("failed to load commissions", err)
	}
	return &models.BalanceResponse{
		AffiliateUserID: affiliateID,
		Available:       sum(commissions),
		Commissions:     len(commissions),
	}, nil
}

// RequestWithdrawal claims the caller's oldest commissions until they cover
// the requested amount.
func (s *AffiliateService) RequestWithdrawal(ctx context.Context, callerID string, p models.WithdrawalRequestPayload) (*models.WithdrawalRequest, error) {
	ok, err := s.Authz.HasRole(ctx, callerID, models.RoleAffiliate)
	if err != nil {
		return nil, apperrors.Persistence("failed to check permissions", err)
	}
	if !ok {
		return nil, apperrors.Forbidden("Affiliate role required")
	}
	if !p.Amount.IsPositive() {
		return nil, apperrors.Validation("amount must be greater than zero")
	}
	if err := s.fillBankDetails(ctx, callerID, &p); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= claimAttempts; attempt++ {
		available, err := s.DB.AvailableCommissions(ctx, callerID)
		if err != nil {
			return nil, apperrors.Persistence("failed to load commissions", err)
		}
		claim, covered := selectOldestFirst(available, p.Amount)
		if !covered {
			if s.Metrics != nil {
				s.Metrics.Withdrawal("insufficient_balance")
			}
			return nil, apperrors.DomainRule(apperrors.CodeInsufficientBalance,
				fmt.Sprintf("requested %s exceeds available balance %s", p.Amount.StringFixed(2), sum(available).StringFixed(2)))
		}

		now := s.now()
		w := &models.WithdrawalRequest{
			ID:                utils.NewID(),
			AffiliateUserID:   callerID,
			RequestedAmount:   p.Amount,
			Status:            models.WithdrawalPending,
			BankName:          p.BankName,
			BankAccountNumber: p.BankAccountNumber,
			BankAccountHolder: p.BankAccountHolder,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		err = s.DB.CreateWithdrawal(ctx, w, ids(claim))
		if errors.Is(err, affiliatedb.ErrClaimConflict) {
			s.Logger.Warn("WITHDRAWAL", fmt.Sprintf("Commission claim raced for %s (attempt %d), retrying", callerID, attempt))
			continue
		}
		if err != nil {
			return nil, apperrors.Persistence("failed to create withdrawal request", err)
		}

		s.Logger.LogWithdrawal("REQUESTED", w.ID, fmt.Sprintf("%s for %s, %d commissions linked", p.Amount.StringFixed(2), callerID, len(claim)))
		if s.Metrics != nil {
			s.Metrics.Withdrawal("requested")
		}
		return w, nil
	}
	return nil, apperrors.Conflict(apperrors.CodeInsufficientBalance, "balance changed while the request was being created, please retry")
}

// fillBankDetails falls back to the bank account stored on the profile.
func (s *AffiliateService) fillBankDetails(ctx context.Context, callerID string, p *models.WithdrawalRequestPayload) error {
	if p.BankName == "" || p.BankAccountNumber == "" || p.BankAccountHolder == "" {
		user, err := s.DB.GetUser(ctx, callerID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return apperrors.Persistence("failed to load profile", err)
		}
		if user != nil {
			p.BankName = firstNonEmpty(p.BankName, user.BankName)
			p.BankAccountNumber = firstNonEmpty(p.BankAccountNumber, user.BankAccountNumber)
			p.BankAccountHolder = firstNonEmpty(p.BankAccountHolder, user.BankAccountHolder)
		}
	}
	if p.BankName == "" || p.BankAccountNumber == "" || p.BankAccountHolder == "" {
		return apperrors.Validation("bank_name, bank_account_number and bank_account_holder are required")
	}
	return nil
}

// ProcessWithdrawal lets an admin approve or reject a pending request.
func (s *AffiliateService) ProcessWithdrawal(ctx context.Context, callerID, id string, p models.ProcessWithdrawalPayload) (*models.WithdrawalRequest, error) {
	isAdmin, err := s.Authz.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, apperrors.Persistence("failed to check permissions", err)
	}
	if !isAdmin {
		return nil, apperrors.Forbidden("Admin access required")
	}
	if p.Action != models.ActionApprove && p.Action != models.ActionReject {
		return nil, apperrors.Validation("action must be approve or reject")
	}

	w, err := s.DB.ProcessWithdrawal(ctx, id, affiliatedb.ProcessParams{
		Action:  p.Action,
		AdminID: callerID,
		Notes:   p.AdminNotes,
		At:      s.now(),
	})
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, apperrors.NotFound(fmt.Sprintf("withdrawal request %s not found", id))
	case errors.Is(err, affiliatedb.ErrAlreadyProcessed):
		return nil, apperrors.DomainRule(apperrors.CodeAlreadyProcessed, "withdrawal request has already been processed")
	case err != nil:
		return nil, apperrors.Persistence("failed to process withdrawal", err)
	}

	s.Logger.LogWithdrawal(string(p.Action), w.ID, fmt.Sprintf("processed by %s", callerID))
	if s.Metrics != nil {
		s.Metrics.Withdrawal(string(w.Status))
	}
	if err := s.Events.PublishWithdrawalProcessed(ctx, w); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Kafka publish error (withdrawal %s): %v", w.ID, err))
	}
	return w, nil
}

// ListWithdrawals shows admins every request and affiliates their own.
func (s *AffiliateService) ListWithdrawals(ctx context.Context, callerID string) ([]models.WithdrawalRequest, error) {
	isAdmin, err := s.Authz.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, apperrors.Persistence("failed to check permissions", err)
	}
	scope := callerID
	if isAdmin {
		scope = ""
	}
	list, err := s.DB.ListWithdrawals(ctx, scope)
	if err != nil {
		return nil, apperrors.Persistence("failed to list withdrawals", err)
	}
	return list, nil
}

func (s *AffiliateService) ListCommissions(ctx context.Context, callerID string) ([]models.Commission, error) {
	list, err := s.DB.ListCommissions(ctx, callerID)
	if err != nil {
		return nil, apperrors.Persistence("failed to list commissions", err)
	}
	return list, nil
}

// selectOldestFirst takes commissions in order until their sum reaches
// amount. covered is false when all of them together fall short.
func selectOldestFirst(available []models.Commission, amount decimal.Decimal) (claim []models.Commission, covered bool) {
	total := decimal.Zero
	for _, c := range available {
		if total.GreaterThanOrEqual(amount) {
			break
		}
		claim = append(claim, c)
		total = total.Add(c.Amount)
	}
	return claim, total.GreaterThanOrEqual(amount)
}

func sum(commissions []models.Commission) decimal.Decimal {
	total := decimal.Zero
	for _, c := range commissions {
		total = total.Add(c.Amount)
	}
	return total
}

func ids(commissions []models.Commission) []string {
	out := make([]string, len(commissions))
	for i, c := range commissions {
		out[i] = c.ID
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
