package http

import (
	"net/http"
	"time"

	"lendpool/internal/ledger"
	"lendpool/internal/usecase/loanflow"

	"github.com/labstack/echo/v4"
)

type LoanHandler struct{ uc *loanflow.Usecase }

func NewLoanHandler(uc *loanflow.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type applyLoanReq struct {
	BorrowerID string `json:"borrower_id" validate:"required,hex32"`
	Amount     int64  `json:"amount"      validate:"required,gt=0"`
	TermDays   int    `json:"term_days"   validate:"required,gte=1,lte=365"`
}

func (h *LoanHandler) ApplyForLoan(c echo.Context) error {
	var req applyLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Apply(c.Request().Context(), loanflow.ApplyInput{
		BorrowerID: req.BorrowerID,
		Amount:     ledger.Money(req.Amount),
		TermDays:   req.TermDays,
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) ConfirmLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_id path param"})
	}
	dto, err := h.uc.Confirm(c.Request().Context(), loanID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type declineLoanReq struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *LoanHandler) DeclineLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_id path param"})
	}
	var req declineLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Decline(c.Request().Context(), loanID, req.Reason)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type recordRepaymentReq struct {
	Amount     int64  `json:"amount"      validate:"required,gt=0"`
	TxRef      string `json:"tx_ref"      validate:"required"`
	Method     string `json:"method"      validate:"required,oneof=transfer cash wallet"`
	ReceivedAt string `json:"received_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (h *LoanHandler) RecordRepayment(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_id path param"})
	}
	var req recordRepaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	receivedAt := time.Now().UTC()
	if req.ReceivedAt != "" {
		receivedAt, _ = time.Parse(time.RFC3339, req.ReceivedAt)
	}
	dto, err := h.uc.RecordRepayment(c.Request().Context(), loanflow.RecordRepaymentInput{
		LoanID:     loanID,
		Amount:     ledger.Money(req.Amount),
		TxRef:      req.TxRef,
		Method:     req.Method,
		ReceivedAt: receivedAt,
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) MarkDefaulted(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_id path param"})
	}
	dto, err := h.uc.MarkDefaulted(c.Request().Context(), loanID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	dto, err := h.uc.Get(c.Request().Context(), loanID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) CurrentTier(c echo.Context) error {
	userID := c.Param("user_id")
	if !reHex32.MatchString(userID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id must be 32-char lowercase hex"})
	}
	dto, err := h.uc.CurrentTier(c.Request().Context(), userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
