package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("booking: %w", ErrSlotAlreadyBooked.Wrap(errors.New("E11000 duplicate key")))

	assert.ErrorIs(t, wrapped, ErrSlotAlreadyBooked)
	assert.NotErrorIs(t, wrapped, ErrAlreadyCancelled)
}

func TestAsFallsBackToInternal(t *testing.T) {
	e := As(errors.New("boom"))
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, "INTERNAL", e.Code)

	e = As(Validation("slotTime is required"))
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, "slotTime is required", e.Message)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:          http.StatusNotFound,
		KindConflict:          http.StatusConflict,
		KindForbidden:         http.StatusForbidden,
		KindUnauthenticated:   http.StatusUnauthorized,
		KindValidation:        http.StatusBadRequest,
		KindTransactionFailed: http.StatusServiceUnavailable,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}
