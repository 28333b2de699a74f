package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ms-booking/internal/apperrors"
	"ms-booking/internal/auth"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/database"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/utils"
)

type DBLayer interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	UpdatePaymentToken(ctx context.Context, id string, token *models.PaymentToken) error
	MarkFailed(ctx context.Context, id string) error
	UpdatePaymentStatus(ctx context.Context, id string, u models.GatewayUpdate) (bool, error)
	Settle(ctx context.Context, id string, p bookingdb.SettleParams) (*bookingdb.SettleResult, error)
	SetTicketPDFURL(ctx context.Context, id, url string) error
}

type PaymentGateway interface {
	CreateTransaction(ctx context.Context, req models.PaymentRequest) (*models.PaymentToken, error)
	VerifyNotification(n models.MidtransNotification) bool
}

type NotificationLock interface {
	Acquire(ctx context.Context, orderID string) (release func(), ok bool, err error)
}

type TicketRenderer interface {
	RenderTicket(doc models.TicketDocument) ([]byte, error)
}

type TicketStorage interface {
	UploadTicket(ctx context.Context, bookingID string, pdf []byte) (string, error)
}

type Mailer interface {
	SendTicket(ctx context.Context, msg models.TicketEmail) error
}

type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, b *models.Booking) error
	PublishBookingPaid(ctx context.Context, b *models.Booking) error
	PublishStatusChanged(ctx context.Context, b *models.Booking) error
	PublishFulfillmentRetry(ctx context.Context, bookingID, reason string, attempt int) error
}

type Recorder interface {
	Booking(couponApplied bool)
	Webhook(outcome string)
	Fulfillment(step string)
}

type Deps struct {
	DB             DBLayer
	Gateway        PaymentGateway
	Lock           NotificationLock
	Renderer       TicketRenderer
	Storage        TicketStorage
	Mailer         Mailer
	Events         EventPublisher
	Authz          auth.AuthorizationChecker
	Metrics        Recorder
	Logger         *logger.Logger
	CommissionRate decimal.Decimal
}

type BookingService struct {
	Deps
	now func() time.Time
	// spawn runs ticket delivery off the webhook request.
	spawn    func(func())
	inflight sync.WaitGroup
}

func NewBookingService(d Deps) *BookingService {
	return &BookingService{
		Deps:  d,
		now:   func() time.Time { return time.Now().UTC() },
		spawn: func(fn func()) { go fn() },
	}
}

// ---------------- BOOKINGS ----------------

// InitiateBooking prices the request, stores a pending booking and obtains a
// checkout token. Inventory and coupon usage are untouched until payment.
func (s *BookingService) InitiateBooking(ctx context.Context, callerID string, req models.BookingRequest) (*models.BookingResponse, error) {
	if callerID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if req.NumTickets < 1 {
		return nil, apperrors.Validation("num_tickets must be at least 1")
	}

	event, err := s.DB.GetEvent(ctx, req.EventID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("event %s not found", req.EventID))
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to load event", err)
	}

	tier, ok := event.TierByName(req.TierName)
	if !ok {
		return nil, apperrors.DomainRule(apperrors.CodeInvalidTier, fmt.Sprintf("tier %q does not exist for this event", req.TierName))
	}
	if tier.AvailableTickets < req.NumTickets || event.AvailableTickets < req.NumTickets {
		return nil, apperrors.DomainRule(apperrors.CodeInsufficientInventory,
			fmt.Sprintf("only %d tickets left for tier %s", min(tier.AvailableTickets, event.AvailableTickets), tier.Name))
	}

	var coupon *models.Coupon
	couponRequested := models.NormalizeCouponCode(req.CouponCode) != ""
	if couponRequested {
		coupon, err = s.DB.GetCouponByCode(ctx, req.CouponCode)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.Persistence("failed to load coupon", err)
		}
	}
	quote := pricing.PriceBooking(*tier, req.NumTickets, coupon, couponRequested, s.now())
	if quote.CouponReason != "" {
		s.Logger.LogBooking("COUPON_IGNORED", req.CouponCode, quote.CouponReason)
	}

	now := s.now()
	booking := &models.Booking{
		ID:               utils.NewID(),
		EventID:          event.ID,
		UserID:           callerID,
		BuyerName:        req.BuyerName,
		BuyerEmail:       req.BuyerEmail,
		BuyerPhone:       req.BuyerPhone,
		Tickets:          req.NumTickets,
		TierName:         tier.Name,
		TierPrice:        tier.Price,
		Subtotal:         quote.Subtotal,
		DiscountAmount:   quote.DiscountAmount,
		TotalPrice:       quote.Total,
		PaymentStatus:    models.PaymentPending,
		ReferralCodeUsed: s.resolveReferral(ctx, callerID, req.ReferralCode),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if quote.CouponApplied {
		booking.CouponID = &coupon.ID
		booking.CouponCode = coupon.Code
	}

	if err := s.DB.CreateBooking(ctx, booking); err != nil {
		return nil, apperrors.Persistence("failed to create booking", err)
	}
	s.Logger.LogBooking("CREATED", booking.ID, fmt.Sprintf("%d x %s total %s", booking.Tickets, booking.TierName, booking.TotalPrice.StringFixed(2)))

	if !booking.TotalPrice.Round(0).IsPositive() {
		return s.settleFree(ctx, booking, quote)
	}

	token, err := s.Gateway.CreateTransaction(ctx, models.PaymentRequest{
		OrderID:     booking.ID,
		GrossAmount: booking.TotalPrice,
		ItemID:      fmt.Sprintf("%s-%s", event.ID, tier.Name),
		ItemName:    fmt.Sprintf("%s - %s", event.Name, tier.Name),
		UnitPrice:   tier.Price,
		Quantity:    booking.Tickets,
		Discount:    booking.DiscountAmount,
		BuyerName:   booking.BuyerName,
		BuyerEmail:  booking.BuyerEmail,
		BuyerPhone:  booking.BuyerPhone,
	})
	if err != nil {
		if markErr := s.DB.MarkFailed(ctx, booking.ID); markErr != nil {
			s.Logger.Error("BOOKING", fmt.Sprintf("Failed to mark booking %s failed: %v", booking.ID, markErr))
		}
		return nil, apperrors.Upstream(apperrors.CodePaymentGateway, "payment gateway could not create a transaction", err)
	}

	if err := s.DB.UpdatePaymentToken(ctx, booking.ID, token); err != nil {
		return nil, apperrors.Persistence("failed to store payment token", err)
	}
	booking.PaymentToken = token.Token
	booking.PaymentRedirectURL = token.RedirectURL

	if s.Metrics != nil {
		s.Metrics.Booking(quote.CouponApplied)
	}
	if err := s.Events.PublishBookingCreated(ctx, booking); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Kafka publish error (booking created %s): %v", booking.ID, err))
	}

	return &models.BookingResponse{
		BookingID:           booking.ID,
		PaymentToken:        token.Token,
		RedirectURL:         token.RedirectURL,
		PaymentStatus:       models.PaymentPending,
		Subtotal:            quote.Subtotal,
		DiscountAmount:      quote.DiscountAmount,
		TotalPrice:          quote.Total,
		CouponApplied:       quote.CouponApplied,
		CouponIgnoredReason: quote.CouponReason,
	}, nil
}

// settleFree marks a booking with nothing to charge as paid without going
// through the gateway, then delivers its ticket.
func (s *BookingService) settleFree(ctx context.Context, booking *models.Booking, quote pricing.Quote) (*models.BookingResponse, error) {
	settled, err := s.DB.Settle(ctx, booking.ID, bookingdb.SettleParams{
		Update: models.GatewayUpdate{
			Status:      models.PaymentPaid,
			RawStatus:   "free",
			PaymentType: "free",
			At:          s.now(),
		},
		CommissionRate: s.CommissionRate,
	})
	if err != nil {
		return nil, apperrors.Persistence("failed to settle free booking", err)
	}
	if settled.Oversold {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Free booking %s settled with insufficient stock for tier %s; inventory clamped at zero", booking.ID, booking.TierName))
	}
	if settled.CouponOverLimit {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Free booking %s used coupon %s past its usage limit; use not counted", booking.ID, booking.CouponCode))
	}
	s.Logger.LogBooking("SETTLED_FREE", booking.ID, "nothing to charge, skipped payment gateway")

	if s.Metrics != nil {
		s.Metrics.Booking(quote.CouponApplied)
	}
	if err := s.Events.PublishBookingCreated(ctx, settled.Booking); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Kafka publish error (booking created %s): %v", booking.ID, err))
	}
	s.fulfillAsync(ctx, settled.Booking)

	return &models.BookingResponse{
		BookingID:           booking.ID,
		PaymentStatus:       models.PaymentPaid,
		Subtotal:            quote.Subtotal,
		DiscountAmount:      quote.DiscountAmount,
		TotalPrice:          quote.Total,
		CouponApplied:       quote.CouponApplied,
		CouponIgnoredReason: quote.CouponReason,
	}, nil
}

// resolveReferral keeps a referral code only if it belongs to someone other
// than the buyer.
func (s *BookingService) resolveReferral(ctx context.Context, callerID, code string) string {
	if code == "" {
		return ""
	}
	owner, err := s.DB.GetUserByReferralCode(ctx, code)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			s.Logger.Warn("BOOKING", fmt.Sprintf("Referral lookup for %s failed: %v", code, err))
		}
		return ""
	}
	if owner.ID == callerID {
		return ""
	}
	return code
}

// GetBooking returns the caller's own booking. Admins may read any booking.
func (s *BookingService) GetBooking(ctx context.Context, callerID, id string) (*models.Booking, error) {
	b, err := s.DB.GetBookingByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("booking %s not found", id))
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to load booking", err)
	}
	if b.UserID == callerID {
		return b, nil
	}

	isAdmin, err := s.Authz.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, apperrors.Persistence("failed to check permissions", err)
	}
	if !isAdmin {
		// Other users' bookings are reported as missing.
		return nil, apperrors.NotFound(fmt.Sprintf("booking %s not found", id))
	}
	return b, nil
}
