package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
	"github.com/f1v3-dev/lemontree-interview/pkg/metrics"
)

// PaymentUseCase processes and cancels the payment leg of a trade. Every
// operation locks the trade row first and the member row second; that
// consistent order is what serializes concurrent requests on the same
// trade or member.
type PaymentUseCase struct {
	store   Store
	payback *PaybackUseCase
	log     *logrus.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewPaymentUseCase(store Store, payback *PaybackUseCase, log *logrus.Logger, collector *metrics.Collector) *PaymentUseCase {
	return &PaymentUseCase{
		store:   store,
		payback: payback,
		log:     log,
		metrics: collector,
		now:     time.Now,
	}
}

// WithClock overrides the time source used for approval and cancellation
// stamps. Tests use it to pin calendar boundaries.
func (uc *PaymentUseCase) WithClock(now func() time.Time) *PaymentUseCase {
	uc.now = now
	return uc
}

// ProcessPayment executes a WAIT payment: limit and balance checks, then
// the member debit and the DONE transition, all under row locks in one
// transaction. Of N concurrent calls on the same trade exactly one
// succeeds; the rest observe the DONE status and fail.
func (uc *PaymentUseCase) ProcessPayment(ctx context.Context, tradeID int64) (err error) {
	defer uc.observe("process_payment", time.Now(), &err)

	err = uc.store.InTx(ctx, func(s Store) error {
		trade, err := s.Trades().GetForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}
		member, err := s.Members().GetForUpdate(ctx, trade.MemberID)
		if err != nil {
			return err
		}

		if trade.PaymentStatus != domain.PaymentWait {
			return domain.ErrPaymentAlreadyDone
		}

		if err := checkLimitAndBalance(member, trade.PaymentAmount); err != nil {
			return err
		}
		if err := member.Pay(trade.PaymentAmount); err != nil {
			return err
		}
		trade.CompletePayment(uc.now())

		if err := s.Members().Update(ctx, member); err != nil {
			return err
		}
		return s.Trades().Update(ctx, trade)
	})
	if err != nil {
		return err
	}

	uc.log.WithField("trade_id", tradeID).Info("payment completed")
	return nil
}

// CancelPayment unwinds a DONE payment: the amount is refunded and the
// accumulators are rolled back when the cancellation falls in the same
// accounting period as the approval. A DONE payback is revoked first as a
// best-effort sub-step; its failure is logged and swallowed so the
// payment cancellation still goes through.
func (uc *PaymentUseCase) CancelPayment(ctx context.Context, tradeID int64) (err error) {
	defer uc.observe("cancel_payment", time.Now(), &err)

	err = uc.store.InTx(ctx, func(s Store) error {
		trade, err := s.Trades().GetForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}
		member, err := s.Members().GetForUpdate(ctx, trade.MemberID)
		if err != nil {
			return err
		}

		if trade.PaymentStatus != domain.PaymentDone {
			return domain.ErrPaymentNotComplete
		}

		now := uc.now()

		if trade.PaybackStatus == domain.PaybackDone {
			// Best-effort compensation on the rows this transaction already
			// locked. cancelLocked validates before it mutates, so a refusal
			// leaves no partial state behind.
			if err := uc.payback.cancelLocked(member, trade, now); err != nil {
				uc.log.WithError(err).WithField("trade_id", tradeID).Error("payback cancel failed during payment cancel")
			}
		}

		approvedAt := *trade.PaymentApprovedAt

		if err := trade.CancelPayment(now); err != nil {
			return err
		}
		if err := member.CancelPayment(trade.PaymentAmount); err != nil {
			return err
		}

		// Roll the accumulators back only within the original accounting
		// period, by calendar date and year-month, not elapsed time.
		if sameDay(now, approvedAt) {
			member.DecreaseDailyAccumulate(trade.PaymentAmount)
		}
		if sameMonth(now, approvedAt) {
			member.DecreaseMonthlyAccumulate(trade.PaymentAmount)
		}

		if err := s.Members().Update(ctx, member); err != nil {
			return err
		}
		return s.Trades().Update(ctx, trade)
	})
	if err != nil {
		return err
	}

	uc.log.WithField("trade_id", tradeID).Info("payment canceled")
	return nil
}

// checkLimitAndBalance validates a payment amount against the member, in
// this fixed order: once limit, daily limit, monthly limit, balance. The
// precedence is part of the contract.
func checkLimitAndBalance(member *domain.Member, amount decimal.Decimal) error {
	if amount.GreaterThan(member.OnceLimit) {
		return domain.ErrOnceLimitExceed
	}

	expectedDaily := member.DailyAccumulate.Add(amount)
	if expectedDaily.GreaterThan(member.DailyLimit) {
		return domain.ErrDailyLimitExceed
	}

	expectedMonthly := member.MonthlyAccumulate.Add(amount)
	if expectedMonthly.GreaterThan(member.MonthlyLimit) {
		return domain.ErrMonthlyLimitExceed
	}

	if member.Balance.LessThan(amount) {
		return domain.ErrBalanceLack
	}
	if member.Balance.Sub(amount).Sign() < 0 {
		return domain.ErrBalanceLack
	}

	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func (uc *PaymentUseCase) observe(operation string, start time.Time, err *error) {
	if uc.metrics != nil {
		uc.metrics.ObserveOperation(operation, time.Since(start), *err)
	}
}
