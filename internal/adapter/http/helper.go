package http

import (
	"errors"
	"net/http"
	"strings"

	"lendpool/internal/domain/loan"
	"lendpool/internal/domain/pool"
	"lendpool/internal/lock"
	"lendpool/internal/usecase/loanflow"

	"github.com/labstack/echo/v4"
)

// ---- helpers ----

// writeDomainError maps domain sentinels to HTTP codes. Anything
// unrecognized is a 500 with the message hidden from the client.
func writeDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, loan.ErrNotFound), errors.Is(err, pool.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, loan.ErrValidation), errors.Is(err, pool.ErrValidation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, loanflow.ErrIneligible):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, loan.ErrActiveLoanExists),
		errors.Is(err, loan.ErrInvalidTransition),
		errors.Is(err, pool.ErrDuplicateTx):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, pool.ErrInsufficientLiquidity), errors.Is(err, pool.ErrInsufficientShares):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, lock.ErrNotAcquired):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "entity busy, retry later"})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
