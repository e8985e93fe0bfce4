package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
	"github.com/f1v3-dev/lemontree-interview/pkg/metrics"
	"github.com/f1v3-dev/lemontree-interview/pkg/money"
)

// PaybackUseCase issues and revokes the payback leg of a trade.
type PaybackUseCase struct {
	store   Store
	log     *logrus.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewPaybackUseCase(store Store, log *logrus.Logger, collector *metrics.Collector) *PaybackUseCase {
	return &PaybackUseCase{
		store:   store,
		log:     log,
		metrics: collector,
		now:     time.Now,
	}
}

// WithClock overrides the time source used for approval and cancellation
// stamps.
func (uc *PaybackUseCase) WithClock(now func() time.Time) *PaybackUseCase {
	uc.now = now
	return uc
}

// ProcessPayback credits the trade's payback amount to the member and
// marks the payback leg DONE. The payment leg must already be DONE, and
// the credit must not push the balance over the member's ceiling.
func (uc *PaybackUseCase) ProcessPayback(ctx context.Context, tradeID int64) (err error) {
	defer uc.observe("process_payback", time.Now(), &err)

	err = uc.store.InTx(ctx, func(s Store) error {
		trade, err := s.Trades().GetForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}

		if trade.PaymentStatus != domain.PaymentDone {
			return domain.ErrPaymentNotComplete
		}
		if trade.PaybackStatus == domain.PaybackDone {
			return domain.ErrPaybackAlreadyDone
		}

		if money.IsPositive(trade.PaybackAmount) {
			member, err := s.Members().GetForUpdate(ctx, trade.MemberID)
			if err != nil {
				return err
			}

			if member.Balance.Add(trade.PaybackAmount).GreaterThan(member.BalanceLimit) {
				return domain.ErrPaybackNotAllowed
			}
			if err := member.Payback(trade.PaybackAmount); err != nil {
				return err
			}
			if err := s.Members().Update(ctx, member); err != nil {
				return err
			}
		}

		trade.CompletePayback(uc.now())
		return s.Trades().Update(ctx, trade)
	})
	if err != nil {
		return err
	}

	uc.log.WithField("trade_id", tradeID).Info("payback completed")
	return nil
}

// CancelPayback revokes an issued payback: the amount is debited back from
// the member and the payback leg is marked CANCEL. Both legs must be DONE.
func (uc *PaybackUseCase) CancelPayback(ctx context.Context, tradeID int64) (err error) {
	defer uc.observe("cancel_payback", time.Now(), &err)

	err = uc.store.InTx(ctx, func(s Store) error {
		trade, err := s.Trades().GetForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}

		var member *domain.Member
		if money.IsPositive(trade.PaybackAmount) &&
			trade.PaymentStatus == domain.PaymentDone && trade.PaybackStatus == domain.PaybackDone {
			member, err = s.Members().GetForUpdate(ctx, trade.MemberID)
			if err != nil {
				return err
			}
		}

		if err := uc.cancelLocked(member, trade, uc.now()); err != nil {
			return err
		}

		if member != nil {
			if err := s.Members().Update(ctx, member); err != nil {
				return err
			}
		}
		return s.Trades().Update(ctx, trade)
	})
	if err != nil {
		return err
	}

	uc.log.WithField("trade_id", tradeID).Info("payback canceled")
	return nil
}

// cancelLocked performs the payback cancellation against an already-locked
// trade and member. The payment engine reuses it as the best-effort
// compensation inside payment cancellation; every check runs before any
// mutation, so a refusal leaves both entities untouched.
func (uc *PaybackUseCase) cancelLocked(member *domain.Member, trade *domain.Trade, now time.Time) error {
	if trade.PaymentStatus != domain.PaymentDone {
		return domain.ErrPaymentNotComplete
	}
	if trade.PaybackStatus != domain.PaybackDone {
		return domain.ErrPaybackNotComplete
	}

	if money.IsPositive(trade.PaybackAmount) {
		if member.Balance.LessThan(trade.PaybackAmount) {
			return domain.ErrPaybackNotAllowed
		}
		if err := member.CancelPayback(trade.PaybackAmount); err != nil {
			return err
		}
	}

	return trade.CancelPayback(now)
}

func (uc *PaybackUseCase) observe(operation string, start time.Time, err *error) {
	if uc.metrics != nil {
		uc.metrics.ObserveOperation(operation, time.Since(start), *err)
	}
}
