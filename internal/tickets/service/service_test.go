package tickets

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/apperrors"
	"ms-booking/internal/database"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	ticketdb "ms-booking/internal/tickets/db"
)

type MockTicketDB struct {
	mock.Mock
}

func (m *MockTicketDB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *MockTicketDB) CheckIn(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockTicketDB) GetCheckInStats(ctx context.Context, eventID string) (*ticketdb.CheckInStats, error) {
	args := m.Called(ctx, eventID)
	s, _ := args.Get(0).(*ticketdb.CheckInStats)
	return s, args.Error(1)
}

type staticAuthz struct{ admin bool }

func (a staticAuthz) IsAdmin(context.Context, string) (bool, error) { return a.admin, nil }
func (a staticAuthz) HasRole(context.Context, string, string) (bool, error) {
	return a.admin, nil
}

type countingRecorder struct{ results []string }

func (c *countingRecorder) CheckIn(result string) { c.results = append(c.results, result) }

func newService(db TicketDBLayer, admin bool) (*TicketService, *countingRecorder) {
	rec := &countingRecorder{}
	s := NewTicketService(db, staticAuthz{admin: admin}, rec, logger.NewWithWriter(&bytes.Buffer{}, "debug"))
	return s, rec
}

func paid(checkedIn bool) *models.Booking {
	b := &models.Booking{ID: "b-1", PaymentStatus: models.PaymentPaid, CheckedIn: checkedIn}
	if checkedIn {
		at := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)
		b.CheckedInAt = &at
	}
	return b
}

func TestCheckInSuccess(t *testing.T) {
	m := new(MockTicketDB)
	m.On("GetBooking", mock.Anything, "b-1").Return(paid(false), nil).Once()
	m.On("CheckIn", mock.Anything, "b-1", mock.AnythingOfType("time.Time")).Return(true, nil)
	m.On("GetBooking", mock.Anything, "b-1").Return(paid(true), nil).Once()

	s, rec := newService(m, true)
	b, err := s.CheckIn(context.Background(), "admin", "b-1")
	require.NoError(t, err)
	assert.True(t, b.CheckedIn)
	assert.Equal(t, []string{ResultCheckedIn}, rec.results)
	m.AssertExpectations(t)
}

func TestCheckInErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(m *MockTicketDB)
		admin  bool
		want   error
		status int
	}{
		{
			name:   "not admin",
			setup:  func(m *MockTicketDB) {},
			want:   apperrors.ErrForbidden,
			status: 403,
		},
		{
			name: "unknown booking",
			setup: func(m *MockTicketDB) {
				m.On("GetBooking", mock.Anything, "b-1").Return(nil, database.ErrNotFound)
			},
			admin: true, want: apperrors.ErrNotFound, status: 404,
		},
		{
			name: "pending booking",
			setup: func(m *MockTicketDB) {
				m.On("GetBooking", mock.Anything, "b-1").Return(&models.Booking{ID: "b-1", PaymentStatus: models.PaymentPending}, nil)
			},
			admin: true, want: apperrors.ErrNotPaid, status: 400,
		},
		{
			name: "second scan",
			setup: func(m *MockTicketDB) {
				m.On("GetBooking", mock.Anything, "b-1").Return(paid(true), nil)
			},
			admin: true, want: apperrors.ErrAlreadyCheckedIn, status: 400,
		},
		{
			name: "update error",
			setup: func(m *MockTicketDB) {
				m.On("GetBooking", mock.Anything, "b-1").Return(paid(false), nil)
				m.On("CheckIn", mock.Anything, "b-1", mock.Anything).Return(false, errors.New("disk full"))
			},
			admin: true, want: apperrors.ErrUpdateFailed, status: 500,
		},
		{
			name: "concurrent scan wins",
			setup: func(m *MockTicketDB) {
				m.On("GetBooking", mock.Anything, "b-1").Return(paid(false), nil).Once()
				m.On("CheckIn", mock.Anything, "b-1", mock.Anything).Return(false, nil)
				m.On("GetBooking", mock.Anything, "b-1").Return(paid(true), nil).Once()
			},
			admin: true, want: apperrors.ErrAlreadyCheckedIn, status: 400,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockTicketDB)
			tt.setup(m)
			s, _ := newService(m, tt.admin)

			_, err := s.CheckIn(context.Background(), "caller", "b-1")
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.status, apperrors.From(err).StatusCode())
		})
	}
}

func TestAlreadyCheckedInMentionsTime(t *testing.T) {
	m := new(MockTicketDB)
	m.On("GetBooking", mock.Anything, "b-1").Return(paid(true), nil)
	s, _ := newService(m, true)

	_, err := s.CheckIn(context.Background(), "admin", "b-1")
	assert.Contains(t, apperrors.From(err).Message, "2026-05-01T19:00:00Z")
}

func TestLookupAndStatsRequireAdmin(t *testing.T) {
	m := new(MockTicketDB)
	s, _ := newService(m, false)

	_, err := s.Lookup(context.Background(), "u", "b-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = s.Stats(context.Background(), "u", "event-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	m.AssertNotCalled(t, "GetBooking", mock.Anything, mock.Anything)
}
