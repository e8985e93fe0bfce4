package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the state of a trade's payment leg.
type PaymentStatus string

// PaybackStatus is the state of a trade's payback leg.
type PaybackStatus string

const (
	PaymentWait   PaymentStatus = "WAIT"
	PaymentDone   PaymentStatus = "DONE"
	PaymentCancel PaymentStatus = "CANCEL"

	PaybackWait   PaybackStatus = "WAIT"
	PaybackDone   PaybackStatus = "DONE"
	PaybackCancel PaybackStatus = "CANCEL"
)

// Trade is the combined payment+payback record of one member. Each leg
// walks WAIT -> DONE -> CANCEL independently, except that the payback leg
// can only complete after the payment leg has. Trades are financial
// records and are never deleted.
//
// The trade references its member by id only; engines resolve the member
// explicitly and own the lock order (trade first, then member).
type Trade struct {
	ID            int64
	MemberID      int64
	PaymentAmount decimal.Decimal
	PaymentStatus PaymentStatus
	PaybackAmount decimal.Decimal
	PaybackStatus PaybackStatus

	PaymentApprovedAt *time.Time
	PaymentCanceledAt *time.Time
	PaybackApprovedAt *time.Time
	PaybackCanceledAt *time.Time
}

// NewTrade creates a WAIT/WAIT trade bound to one member. The payment
// amount must be positive; the payback amount may be zero.
func NewTrade(memberID int64, paymentAmount, paybackAmount decimal.Decimal) (*Trade, error) {
	fields := make(map[string]string)
	if paymentAmount.Sign() <= 0 {
		fields["paymentAmount"] = "payment amount must be greater than 0"
	}
	if paybackAmount.Sign() < 0 {
		fields["paybackAmount"] = "payback amount must be 0 or more"
	}
	if len(fields) > 0 {
		return nil, NewValidationError(fields)
	}

	return &Trade{
		MemberID:      memberID,
		PaymentAmount: paymentAmount,
		PaymentStatus: PaymentWait,
		PaybackAmount: paybackAmount,
		PaybackStatus: PaybackWait,
	}, nil
}

// CompletePayment marks the payment leg DONE and stamps the approval
// time. The engine has already validated the WAIT precondition under lock.
func (t *Trade) CompletePayment(now time.Time) {
	t.PaymentStatus = PaymentDone
	t.PaymentApprovedAt = &now
}

// CancelPayment marks the payment leg CANCEL. The cancellation instant is
// supplied by the caller so the engine can reuse it for the same-day /
// same-month accumulator comparison.
func (t *Trade) CancelPayment(now time.Time) error {
	if t.PaymentStatus != PaymentDone {
		return ErrPaymentNotComplete
	}
	t.PaymentStatus = PaymentCancel
	t.PaymentCanceledAt = &now
	return nil
}

// CompletePayback marks the payback leg DONE and stamps the approval time.
func (t *Trade) CompletePayback(now time.Time) {
	t.PaybackStatus = PaybackDone
	t.PaybackApprovedAt = &now
}

// CancelPayback marks the payback leg CANCEL.
func (t *Trade) CancelPayback(now time.Time) error {
	if t.PaybackStatus != PaybackDone {
		return ErrPaybackNotComplete
	}
	t.PaybackStatus = PaybackCancel
	t.PaybackCanceledAt = &now
	return nil
}
