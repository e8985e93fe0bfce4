package domain

import "net/http"

// Code identifies one business-rule violation. The set is closed: callers
// switch on the code (via errors.Is against the sentinels below) to pick
// status and messaging, never on error strings.
type Code string

const (
	CodeValidation         Code = "VALIDATION"
	CodeMemberNotFound     Code = "MEMBER_NOT_FOUND"
	CodeTradeNotFound      Code = "TRADE_NOT_FOUND"
	CodeBalanceLack        Code = "BALANCE_LACK"
	CodeBalanceExceeded    Code = "BALANCE_EXCEEDED"
	CodeOnceLimitExceed    Code = "ONCE_LIMIT_EXCEED"
	CodeDailyLimitExceed   Code = "DAILY_LIMIT_EXCEED"
	CodeMonthlyLimitExceed Code = "MONTHLY_LIMIT_EXCEED"
	CodePaymentAlreadyDone Code = "PAYMENT_ALREADY_DONE"
	CodePaymentNotComplete Code = "PAYMENT_NOT_COMPLETE"
	CodePaybackAlreadyDone Code = "PAYBACK_ALREADY_DONE"
	CodePaybackNotComplete Code = "PAYBACK_NOT_COMPLETE"
	CodePaybackNotAllowed  Code = "PAYBACK_NOT_ALLOWED"
)

// Error is a domain rule violation with an HTTP-equivalent status.
// Validation errors additionally carry a field → message map.
type Error struct {
	Code       Code
	Status     int
	Message    string
	Validation map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches by code so wrapped and derived instances compare equal to
// their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidation         = &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: "invalid request"}
	ErrMemberNotFound     = &Error{Code: CodeMemberNotFound, Status: http.StatusNotFound, Message: "member not found"}
	ErrTradeNotFound      = &Error{Code: CodeTradeNotFound, Status: http.StatusNotFound, Message: "trade not found"}
	ErrBalanceLack        = &Error{Code: CodeBalanceLack, Status: http.StatusBadRequest, Message: "balance is insufficient"}
	ErrBalanceExceeded    = &Error{Code: CodeBalanceExceeded, Status: http.StatusBadRequest, Message: "balance limit exceeded"}
	ErrOnceLimitExceed    = &Error{Code: CodeOnceLimitExceed, Status: http.StatusBadRequest, Message: "once limit exceeded"}
	ErrDailyLimitExceed   = &Error{Code: CodeDailyLimitExceed, Status: http.StatusBadRequest, Message: "daily limit exceeded"}
	ErrMonthlyLimitExceed = &Error{Code: CodeMonthlyLimitExceed, Status: http.StatusBadRequest, Message: "monthly limit exceeded"}
	ErrPaymentAlreadyDone = &Error{Code: CodePaymentAlreadyDone, Status: http.StatusBadRequest, Message: "payment already proceeded"}
	ErrPaymentNotComplete = &Error{Code: CodePaymentNotComplete, Status: http.StatusBadRequest, Message: "payment is not complete"}
	ErrPaybackAlreadyDone = &Error{Code: CodePaybackAlreadyDone, Status: http.StatusBadRequest, Message: "payback already done"}
	ErrPaybackNotComplete = &Error{Code: CodePaybackNotComplete, Status: http.StatusBadRequest, Message: "payback is not complete"}
	ErrPaybackNotAllowed  = &Error{Code: CodePaybackNotAllowed, Status: http.StatusBadRequest, Message: "payback is not allowed"}
)

// NewValidationError builds a fresh validation error carrying field-level
// detail. The sentinel ErrValidation itself is never mutated.
func NewValidationError(fields map[string]string) *Error {
	v := make(map[string]string, len(fields))
	for k, msg := range fields {
		v[k] = msg
	}
	return &Error{
		Code:       CodeValidation,
		Status:     http.StatusBadRequest,
		Message:    "invalid request",
		Validation: v,
	}
}
