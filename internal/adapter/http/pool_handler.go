package http

import (
	"net/http"

	"lendpool/internal/ledger"
	"lendpool/internal/usecase/poolflow"

	"github.com/labstack/echo/v4"
)

type PoolHandler struct{ uc *poolflow.Usecase }

func NewPoolHandler(uc *poolflow.Usecase) *PoolHandler { return &PoolHandler{uc: uc} }

type depositReq struct {
	LenderID string `json:"lender_id" validate:"required,hex32"`
	Amount   int64  `json:"amount"    validate:"required,gt=0"`
}

func (h *PoolHandler) Deposit(c echo.Context) error {
	var req depositReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Deposit(c.Request().Context(), poolflow.DepositInput{
		LenderID: req.LenderID,
		Amount:   ledger.Money(req.Amount),
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type withdrawReq struct {
	LenderID string `json:"lender_id" validate:"required,hex32"`
	Shares   string `json:"shares"    validate:"required"`
}

func (h *PoolHandler) Withdraw(c echo.Context) error {
	var req withdrawReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Withdraw(c.Request().Context(), poolflow.WithdrawInput{
		LenderID: req.LenderID,
		Shares:   req.Shares,
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *PoolHandler) Snapshot(c echo.Context) error {
	snap, err := h.uc.Snapshot(c.Request().Context())
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}
