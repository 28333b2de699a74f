package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ms-booking/internal/apperrors"
	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// DBLayer is the read side the analytics service aggregates over
type DBLayer interface {
	BookingsByEvents(ctx context.Context, eventIDs []string, status models.PaymentStatus) ([]models.Booking, error)
	EventBookings(ctx context.Context, eventID string, opts EventBookingOptions) ([]models.Booking, error)
}

// Service handles analytics operations
type Service struct {
	DB     DBLayer
	Authz  auth.AuthorizationChecker
	Logger *logger.Logger
}

// NewService creates a new analytics service
func NewService(db DBLayer, authz auth.AuthorizationChecker, l *logger.Logger) *Service {
	return &Service{DB: db, Authz: authz, Logger: l}
}

// EventAnalytics represents aggregated sales data for one or more events
type EventAnalytics struct {
	EventIDs         []string            `json:"event_ids"`
	TotalRevenue     decimal.Decimal     `json:"total_revenue"`
	TotalBeforeDisc  decimal.Decimal     `json:"total_before_discounts"`
	TotalDiscount    decimal.Decimal     `json:"total_discount"`
	TotalBookings    int                 `json:"total_bookings"`
	TotalTicketsSold int                 `json:"total_tickets_sold"`
	CheckedIn        int                 `json:"checked_in_tickets"`
	DailySales       []DailySalesMetrics `json:"daily_sales"`
	SalesByTier      []TierSalesMetrics  `json:"sales_by_tier"`
}

// DailySalesMetrics contains metrics for a single day
type DailySalesMetrics struct {
	Date        string          `json:"date"`
	Revenue     decimal.Decimal `json:"revenue"`
	TicketsSold int             `json:"tickets_sold"`
}

// TierSalesMetrics contains sales metrics for a specific tier
type TierSalesMetrics struct {
	TierName    string          `json:"tier_name"`
	TicketsSold int             `json:"tickets_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// EventDiscountAnalytics represents coupon usage data for an event
type EventDiscountAnalytics struct {
	EventID       string          `json:"event_id"`
	DiscountUsage []DiscountUsage `json:"discount_usage"`
}

// DiscountUsage tracks coupon usage by day
type DiscountUsage struct {
	Date          string          `json:"date"`
	CouponCode    string          `json:"coupon_code"`
	UsageCount    int             `json:"usage_count"`
	TotalDiscount decimal.Decimal `json:"total_discount_amount"`
}

func (s *Service) requireAdmin(ctx context.Context, callerID string) error {
	ok, err := s.Authz.IsAdmin(ctx, callerID)
	if err != nil {
		return apperrors.Persistence("failed to check permissions", err)
	}
	if !ok {
		s.Logger.Warn("ANALYTICS", fmt.Sprintf("User %s attempted to access sales analytics", callerID))
		return apperrors.Forbidden("You do not have permission to access these analytics")
	}
	return nil
}

// salesDate buckets a booking by the day it was paid, or created if unpaid
func salesDate(b models.Booking) string {
	t := b.CreatedAt
	if b.PaidAt != nil {
		t = *b.PaidAt
	}
	return t.UTC().Format(time.DateOnly)
}

// GetEventAnalytics returns paid-sales analytics for one event
func (s *Service) GetEventAnalytics(ctx context.Context, callerID, eventID string) (*EventAnalytics, error) {
	return s.GetBatchEventAnalytics(ctx, callerID, []string{eventID})
}

// GetBatchEventAnalytics aggregates paid sales across several events
func (s *Service) GetBatchEventAnalytics(ctx context.Context, callerID string, eventIDs []string) (*EventAnalytics, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	bookings, err := s.DB.BookingsByEvents(ctx, eventIDs, models.PaymentPaid)
	if err != nil {
		return nil, apperrors.Persistence("failed to load bookings", err)
	}

	result := &EventAnalytics{
		EventIDs:        eventIDs,
		TotalRevenue:    decimal.Zero,
		TotalBeforeDisc: decimal.Zero,
		TotalDiscount:   decimal.Zero,
		DailySales:      []DailySalesMetrics{},
		SalesByTier:     []TierSalesMetrics{},
	}
	if result.EventIDs == nil {
		result.EventIDs = []string{}
	}

	daily := map[string]*DailySalesMetrics{}
	tiers := map[string]*TierSalesMetrics{}
	for _, b := range bookings {
		result.TotalBookings++
		result.TotalRevenue = result.TotalRevenue.Add(b.TotalPrice)
		result.TotalBeforeDisc = result.TotalBeforeDisc.Add(b.Subtotal)
		result.TotalDiscount = result.TotalDiscount.Add(b.DiscountAmount)
		result.TotalTicketsSold += b.Tickets
		if b.CheckedIn {
			result.CheckedIn += b.Tickets
		}

		day := salesDate(b)
		d, ok := daily[day]
		if !ok {
			d = &DailySalesMetrics{Date: day, Revenue: decimal.Zero}
			daily[day] = d
		}
		d.Revenue = d.Revenue.Add(b.TotalPrice)
		d.TicketsSold += b.Tickets

		t, ok := tiers[b.TierName]
		if !ok {
			t = &TierSalesMetrics{TierName: b.TierName, Revenue: decimal.Zero}
			tiers[b.TierName] = t
		}
		t.Revenue = t.Revenue.Add(b.TotalPrice)
		t.TicketsSold += b.Tickets
	}

	for _, d := range daily {
		result.DailySales = append(result.DailySales, *d)
	}
	sort.Slice(result.DailySales, func(i, j int) bool { return result.DailySales[i].Date < result.DailySales[j].Date })
	for _, t := range tiers {
		result.SalesByTier = append(result.SalesByTier, *t)
	}
	sort.Slice(result.SalesByTier, func(i, j int) bool { return result.SalesByTier[i].TierName < result.SalesByTier[j].TierName })

	s.Logger.Debug("ANALYTICS", fmt.Sprintf("Aggregated %d paid bookings across %d events", len(bookings), len(eventIDs)))
	return result, nil
}

// GetEventDiscountAnalytics returns coupon usage per day for an event
func (s *Service) GetEventDiscountAnalytics(ctx context.Context, callerID, eventID string) (*EventDiscountAnalytics, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	bookings, err := s.DB.BookingsByEvents(ctx, []string{eventID}, models.PaymentPaid)
	if err != nil {
		return nil, apperrors.Persistence("failed to load bookings", err)
	}

	usage := map[[2]string]*DiscountUsage{}
	for _, b := range bookings {
		if b.CouponCode == "" || b.CouponID == nil {
			continue
		}
		key := [2]string{salesDate(b), b.CouponCode}
		u, ok := usage[key]
		if !ok {
			u = &DiscountUsage{Date: key[0], CouponCode: key[1], TotalDiscount: decimal.Zero}
			usage[key] = u
		}
		u.UsageCount++
		u.TotalDiscount = u.TotalDiscount.Add(b.DiscountAmount)
	}

	result := &EventDiscountAnalytics{EventID: eventID, DiscountUsage: make([]DiscountUsage, 0, len(usage))}
	for _, u := range usage {
		result.DiscountUsage = append(result.DiscountUsage, *u)
	}
	sort.Slice(result.DiscountUsage, func(i, j int) bool {
		a, b := result.DiscountUsage[i], result.DiscountUsage[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.CouponCode < b.CouponCode
	})
	return result, nil
}

// GetEventBookings returns the bookings of an event with optional filters and sorting
func (s *Service) GetEventBookings(ctx context.Context, callerID, eventID string, opts EventBookingOptions) ([]models.Booking, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	bookings, err := s.DB.EventBookings(ctx, eventID, opts)
	if err != nil {
		return nil, apperrors.Persistence("failed to load bookings", err)
	}
	return bookings, nil
}
