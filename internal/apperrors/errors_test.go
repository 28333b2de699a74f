package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Unauthorized("no token"), http.StatusUnauthorized},
		{Forbidden("admin only"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict(CodeDuplicateCoupon, "dup"), http.StatusConflict},
		{DomainRule(CodeNotPaid, "unpaid"), http.StatusBadRequest},
		{Upstream(CodeUpdateFailed, "update", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode())
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("checkin: %w", DomainRule(CodeAlreadyCheckedIn, "ticket already used"))

	assert.True(t, errors.Is(err, ErrAlreadyCheckedIn))
	assert.False(t, errors.Is(err, ErrNotPaid))
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	raw := errors.New("connection refused")

	appErr := From(raw)

	assert.Equal(t, CodePersistence, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode())
	assert.ErrorIs(t, appErr, raw)
	assert.Nil(t, From(nil))
}
