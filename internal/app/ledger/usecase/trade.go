package usecase

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
)

// TradeUseCase creates and reads trade records. A requested trade records
// the amounts only; limit and balance checks happen at processing time.
type TradeUseCase struct {
	store Store
	log   *logrus.Logger
}

func NewTradeUseCase(store Store, log *logrus.Logger) *TradeUseCase {
	return &TradeUseCase{
		store: store,
		log:   log,
	}
}

// RequestTrade creates a WAIT/WAIT trade bound to the member and returns
// its id.
func (uc *TradeUseCase) RequestTrade(ctx context.Context, memberID int64, paymentAmount, paybackAmount decimal.Decimal) (int64, error) {
	var tradeID int64

	err := uc.store.InTx(ctx, func(s Store) error {
		exists, err := s.Members().Exists(ctx, memberID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrMemberNotFound
		}

		trade, err := domain.NewTrade(memberID, paymentAmount, paybackAmount)
		if err != nil {
			return err
		}

		if err := s.Trades().Create(ctx, trade); err != nil {
			return err
		}
		tradeID = trade.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	uc.log.WithFields(logrus.Fields{
		"trade_id":  tradeID,
		"member_id": memberID,
	}).Info("trade requested")
	return tradeID, nil
}

// GetTrade looks a trade up by id.
func (uc *TradeUseCase) GetTrade(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	return uc.store.Trades().Get(ctx, tradeID)
}
