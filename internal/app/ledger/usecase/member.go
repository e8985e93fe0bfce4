package usecase

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
)

// MemberUseCase owns member creation, lookup, soft deletion and the bulk
// accumulator resets.
type MemberUseCase struct {
	store Store
	log   *logrus.Logger
}

func NewMemberUseCase(store Store, log *logrus.Logger) *MemberUseCase {
	return &MemberUseCase{
		store: store,
		log:   log,
	}
}

// CreateMemberInput carries the validated-at-construction member fields.
type CreateMemberInput struct {
	Name         string
	Balance      decimal.Decimal
	BalanceLimit decimal.Decimal
	OnceLimit    decimal.Decimal
	DailyLimit   decimal.Decimal
	MonthlyLimit decimal.Decimal
}

// CreateMember validates and persists a new member, returning its id.
func (uc *MemberUseCase) CreateMember(ctx context.Context, in CreateMemberInput) (int64, error) {
	member, err := domain.NewMember(in.Name, in.Balance, in.BalanceLimit, in.OnceLimit, in.DailyLimit, in.MonthlyLimit)
	if err != nil {
		return 0, err
	}

	if err := uc.store.Members().Create(ctx, member); err != nil {
		return 0, err
	}

	uc.log.WithField("member_id", member.ID).Info("member created")
	return member.ID, nil
}

// GetMember looks a member up by id, excluding soft-deleted members.
func (uc *MemberUseCase) GetMember(ctx context.Context, memberID int64) (*domain.Member, error) {
	return uc.store.Members().Get(ctx, memberID)
}

// DeleteMember soft-deletes a member. The row stays in place for the
// financial record; reads no longer return it.
func (uc *MemberUseCase) DeleteMember(ctx context.Context, memberID int64) error {
	if err := uc.store.Members().SoftDelete(ctx, memberID); err != nil {
		return err
	}
	uc.log.WithField("member_id", memberID).Info("member deleted")
	return nil
}

// ResetDailyAccumulate zeroes every member's daily accumulator in a single
// statement. Idempotent.
func (uc *MemberUseCase) ResetDailyAccumulate(ctx context.Context) error {
	return uc.store.Members().ResetDailyAccumulate(ctx)
}

// ResetMonthlyAccumulate zeroes every member's monthly accumulator in a
// single statement. Idempotent.
func (uc *MemberUseCase) ResetMonthlyAccumulate(ctx context.Context) error {
	return uc.store.Members().ResetMonthlyAccumulate(ctx)
}
