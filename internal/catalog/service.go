package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-booking/internal/apperrors"
	"ms-booking/internal/auth"
	"ms-booking/internal/database"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/utils"
)

type DBLayer interface {
	ListEvents(ctx context.Context, category string) ([]models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, id string, apply func(*models.Event) error) (*models.Event, error)
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	CreateCoupon(ctx context.Context, c *models.Coupon) error
	UpdateCoupon(ctx context.Context, c *models.Coupon) error
}

type CatalogService struct {
	DB     DBLayer
	Authz  auth.AuthorizationChecker
	Logger *logger.Logger
	now    func() time.Time
}

func NewCatalogService(db DBLayer, authz auth.AuthorizationChecker, l *logger.Logger) *CatalogService {
	return &CatalogService{DB: db, Authz: authz, Logger: l, now: func() time.Time { return time.Now().UTC() }}
}

func (s *CatalogService) requireAdmin(ctx context.Context, callerID string) error {
	ok, err := s.Authz.IsAdmin(ctx, callerID)
	if err != nil {
		return apperrors.Persistence("failed to check permissions", err)
	}
	if !ok {
		s.Logger.LogSecurity("ADMIN_DENIED", fmt.Sprintf("user %q attempted a catalog change", callerID))
		return apperrors.Forbidden("Admin access required")
	}
	return nil
}

// ---------------- EVENTS ----------------

func (s *CatalogService) ListEvents(ctx context.Context, category string) ([]models.Event, error) {
	events, err := s.DB.ListEvents(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, apperrors.Persistence("failed to list events", err)
	}
	return events, nil
}

func (s *CatalogService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.DB.GetEvent(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("event %s not found", id))
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to load event", err)
	}
	return event, nil
}

// UpdateEvent applies only the fields present in the patch. A new tier list
// replaces the old one and the aggregate is recomputed from it.
func (s *CatalogService) UpdateEvent(ctx context.Context, callerID, id string, p models.EventPatch) (*models.Event, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if p.Tiers != nil {
		if err := validateTiers(*p.Tiers); err != nil {
			return nil, err
		}
	}
	if p.AvailableTickets != nil && *p.AvailableTickets < 0 {
		return nil, apperrors.Validation("available_tickets must not be negative")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, apperrors.Validation("name must not be empty")
	}

	now := s.now()
	event, err := s.DB.UpdateEvent(ctx, id, func(e *models.Event) error {
		applyEventPatch(e, p)
		e.RecomputeAvailability()
		e.UpdatedAt = now
		return nil
	})
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("event %s not found", id))
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to update event", err)
	}

	s.Logger.Info("CATALOG", fmt.Sprintf("Event %s updated by %s (available=%d)", id, callerID, event.AvailableTickets))
	return event, nil
}

func applyEventPatch(e *models.Event, p models.EventPatch) {
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = p.Date.UTC()
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Organizer != nil {
		e.Organizer = *p.Organizer
	}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.Tiers != nil {
		e.Tiers = append([]models.PriceTier(nil), (*p.Tiers)...)
	}
	// Only meaningful for tierless events; RecomputeAvailability wins otherwise.
	if p.AvailableTickets != nil {
		e.AvailableTickets = *p.AvailableTickets
	}
}

func validateTiers(tiers []models.PriceTier) error {
	seen := make(map[string]bool, len(tiers))
	for _, t := range tiers {
		switch {
		case strings.TrimSpace(t.Name) == "":
			return apperrors.Validation("tier name is required")
		case seen[t.Name]:
			return apperrors.Validation(fmt.Sprintf("duplicate tier %q", t.Name))
		case t.Price.IsNegative():
			return apperrors.Validation(fmt.Sprintf("tier %q price must not be negative", t.Name))
		case !t.Price.IsInteger():
			return apperrors.Validation(fmt.Sprintf("tier %q price must be a whole rupiah amount", t.Name))
		case t.AvailableTickets < 0:
			return apperrors.Validation(fmt.Sprintf("tier %q available_tickets must not be negative", t.Name))
		}
		seen[t.Name] = true
	}
	return nil
}

// ---------------- COUPONS ----------------

func (s *CatalogService) CreateCoupon(ctx context.Context, callerID string, p models.CouponPayload) (*models.Coupon, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	now := s.now()
	c := &models.Coupon{
		ID:            utils.NewID(),
		Code:          models.NormalizeCouponCode(p.Code),
		DiscountType:  p.DiscountType,
		DiscountValue: p.DiscountValue,
		ExpiresAt:     p.ExpiresAt,
		Active:        true,
		UsageLimit:    p.UsageLimit,
		MinPurchase:   p.MinPurchase,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	if err := c.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	if err := s.DB.CreateCoupon(ctx, c); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Conflict(apperrors.CodeDuplicateCoupon, fmt.Sprintf("coupon %s already exists", c.Code))
		}
		return nil, apperrors.Persistence("failed to create coupon", err)
	}

	s.Logger.Info("CATALOG", fmt.Sprintf("Coupon %s created by %s", c.Code, callerID))
	return c, nil
}

func (s *CatalogService) UpdateCoupon(ctx context.Context, callerID, code string, p models.CouponPatch) (*models.Coupon, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	c, err := s.DB.GetCoupon(ctx, code)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("coupon %s not found", models.NormalizeCouponCode(code)))
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to load coupon", err)
	}

	if p.DiscountType != nil {
		c.DiscountType = *p.DiscountType
	}
	if p.DiscountValue != nil {
		c.DiscountValue = *p.DiscountValue
	}
	if p.ClearExpiry {
		c.ExpiresAt = nil
	} else if p.ExpiresAt != nil {
		c.ExpiresAt = p.ExpiresAt
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	if p.UsageLimit != nil {
		c.UsageLimit = p.UsageLimit
	}
	if p.MinPurchase != nil {
		c.MinPurchase = *p.MinPurchase
	}
	if err := c.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	c.UpdatedAt = s.now()

	if err := s.DB.UpdateCoupon(ctx, c); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("coupon %s not found", c.Code))
		}
		return nil, apperrors.Persistence("failed to update coupon", err)
	}

	s.Logger.Info("CATALOG", fmt.Sprintf("Coupon %s updated by %s", c.Code, callerID))
	return c, nil
}

// ValidateCoupon previews a coupon against a subtotal without consuming it.
func (s *CatalogService) ValidateCoupon(ctx context.Context, req models.CouponCheckRequest) (*models.CouponCheckResponse, error) {
	if req.Subtotal.IsNegative() {
		return nil, apperrors.Validation("subtotal must not be negative")
	}

	c, err := s.DB.GetCoupon(ctx, req.Code)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.Persistence("failed to load coupon", err)
	}

	result := pricing.EvaluateCoupon(c, req.Subtotal, s.now())
	return &models.CouponCheckResponse{
		Code:           models.NormalizeCouponCode(req.Code),
		Valid:          result.IsValid,
		Reason:         result.Reason,
		DiscountAmount: result.DiscountAmount,
		Total:          req.Subtotal.Sub(result.DiscountAmount),
	}, nil
}
