package usecase_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/adapter/out/memory"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/usecase"
	"github.com/f1v3-dev/lemontree-interview/pkg/metrics"
)

type testEnv struct {
	store    *memory.Store
	members  *usecase.MemberUseCase
	trades   *usecase.TradeUseCase
	payments *usecase.PaymentUseCase
	paybacks *usecase.PaybackUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := memory.NewStore(nil)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	collector := metrics.NewCollector()

	paybacks := usecase.NewPaybackUseCase(store, log, collector)
	return &testEnv{
		store:    store,
		members:  usecase.NewMemberUseCase(store, log),
		trades:   usecase.NewTradeUseCase(store, log),
		payments: usecase.NewPaymentUseCase(store, paybacks, log, collector),
		paybacks: paybacks,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedMember creates a member with balance 10000, ceiling 20000, and
// limits once 5000 / daily 10000 / monthly 30000.
func (e *testEnv) seedMember(t *testing.T) int64 {
	t.Helper()
	return e.seedMemberWith(t, usecase.CreateMemberInput{
		Name:         "tester",
		Balance:      dec("10000"),
		BalanceLimit: dec("20000"),
		OnceLimit:    dec("5000"),
		DailyLimit:   dec("10000"),
		MonthlyLimit: dec("30000"),
	})
}

func (e *testEnv) seedMemberWith(t *testing.T, in usecase.CreateMemberInput) int64 {
	t.Helper()
	id, err := e.members.CreateMember(context.Background(), in)
	require.NoError(t, err)
	return id
}

func (e *testEnv) seedTrade(t *testing.T, memberID int64, payment, payback string) int64 {
	t.Helper()
	id, err := e.trades.RequestTrade(context.Background(), memberID, dec(payment), dec(payback))
	require.NoError(t, err)
	return id
}

func (e *testEnv) member(t *testing.T, id int64) *domain.Member {
	t.Helper()
	m, err := e.members.GetMember(context.Background(), id)
	require.NoError(t, err)
	return m
}

func (e *testEnv) trade(t *testing.T, id int64) *domain.Trade {
	t.Helper()
	tr, err := e.trades.GetTrade(context.Background(), id)
	require.NoError(t, err)
	return tr
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

func TestProcessPayment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	memberID := env.seedMember(t)
	tradeID := env.seedTrade(t, memberID, "500", "50")

	require.NoError(t, env.payments.ProcessPayment(ctx, tradeID))

	m := env.member(t, memberID)
	assertDecimal(t, "9500", m.Balance)
	assertDecimal(t, "500", m.DailyAccumulate)
	assertDecimal(t, "500", m.MonthlyAccumulate)

	tr := env.trade(t, tradeID)
	assert.Equal(t, domain.PaymentDone, tr.PaymentStatus)
	assert.NotNil(t, tr.PaymentApprovedAt)
	assert.Equal(t, domain.PaybackWait, tr.PaybackStatus)
}

func TestProcessPaymentAlreadyDone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	memberID := env.seedMember(t)
	tradeID := env.seedTrade(t, memberID, "500", "0")

	require.NoError(t, env.payments.ProcessPayment(ctx, tradeID))

	err := env.payments.ProcessPayment(ctx, tradeID)
	assert.ErrorIs(t, err, domain.ErrPaymentAlreadyDone)

	// The refused attempt must not touch the member.
	m := env.member(t, memberID)
	assertDecimal(t, "9500", m.Balance)
	assertDecimal(t, "500", m.DailyAccumulate)
}

func TestProcessPaymentTradeNotFound(t *testing.T) {
	env := newTestEnv(t)
	err := env.payments.ProcessPayment(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrTradeNotFound)
}

// The limit checks run in a fixed order: once, daily, monthly, balance.
// An amount violating several rules at once reports the first.
func TestProcessPaymentCheckOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("once limit precedes balance lack", func(t *testing.T) {
		env := newTestEnv(t)
		memberID := env.seedMemberWith(t, usecase.CreateMemberInput{
			Name:         "tester",
			Balance:      dec("1000"),
			BalanceLimit: dec("20000"),
			OnceLimit:    dec("5000"),
			DailyLimit:   dec("10000"),
			MonthlyLimit: dec("30000"),
		})
		tradeID := env.seedTrade(t, memberID, "8000", "0")

		err := env.payments.ProcessPayment(ctx, tradeID)
		assert.ErrorIs(t, err, domain.ErrOnceLimitExceed)
	})

	t.Run("balance lack when limits pass", func(t *testing.T) {
		env := newTestEnv(t)
		memberID := env.seedMemberWith(t, usecase.CreateMemberInput{
			Name:         "tester",
			Balance:      dec("1000"),
			BalanceLimit: dec("20000"),
			OnceLimit:    dec("5000"),
			DailyLimit:   dec("10000"),
			MonthlyLimit: dec("30000"),
		})
		tradeID := env.seedTrade(t, memberID, "4000", "0")

		err := env.payments.ProcessPayment(ctx, tradeID)
		assert.ErrorIs(t, err, domain.ErrBalanceLack)
	})

	t.Run("daily limit", func(t *testing.T) {
		env := newTestEnv(t)
		memberID := env.seedMemberWith(t, usecase.CreateMemberInput{
			Name:         "tester",
			Balance:      dec("10000"),
			BalanceLimit: dec("20000"),
			OnceLimit:    dec("3000"),
			DailyLimit:   dec("5000"),
			MonthlyLimit: dec("30000"),
		})
		first := env.seedTrade(t, memberID, "3000", "0")
		require.NoError(t, env.payments.ProcessPayment(ctx, first))

		second := env.seedTrade(t, memberID, "3000", "0")
		err := env.payments.ProcessPayment(ctx, second)
		assert.ErrorIs(t, err, domain.ErrDailyLimitExceed)
	})

	t.Run("monthly limit after daily reset", func(t *testing.T) {
		env := newTestEnv(t)
		memberID := env.seedMemberWith(t, usecase.CreateMemberInput{
			Name:         "tester",
			Balance:      dec("10000"),
			BalanceLimit: dec("20000"),
			OnceLimit:    dec("3000"),
			DailyLimit:   dec("5000"),
			MonthlyLimit: dec("5000"),
		})
		first := env.seedTrade(t, memberID, "3000", "0")
		require.NoError(t, env.payments.ProcessPayment(ctx, first))

		// A new day: the daily accumulator is zeroed, the monthly one keeps
		// counting, so only the monthly limit can refuse the next payment.
		require.NoError(t, env.members.ResetDailyAccumulate(ctx))

		second := env.seedTrade(t, memberID, "3000", "0")
		err := env.payments.ProcessPayment(ctx, second)
		assert.ErrorIs(t, err, domain.ErrMonthlyLimitExceed)
	})
}

func TestProcessPaymentOnceLimitBoundary(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	memberID := env.seedMember(t)

	exact := env.seedTrade(t, memberID, "5000", "0")
	require.NoError(t, env.payments.ProcessPayment(ctx, exact))

	over := env.seedTrade(t, memberID, "5000.01", "0")
	err := env.payments.ProcessPayment(ctx, over)
	assert.ErrorIs(t, err, domain.ErrOnceLimitExceed)
}

func TestCancelPaymentSameDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	memberID := env.seedMember(t)
	tradeID := env.seedTrade(t, memberID, "500", "0")

	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	env.payments.WithClock(func() time.Time { return at })

	require.NoError(t, env.payments.ProcessPayment(ctx, tradeID))

	env.payments.WithClock(func() time.Time { return at.Add(2 * time.Hour) })
	require.NoError(t, env.payments.CancelPayment(ctx, tradeID))

	m := env.member(t, memberID)
	assertDecimal(t, "10000", m.Balance)
	assertDecimal(t, "0", m.DailyAccumulate)
	assertDecimal(t, "0", m.MonthlyAccumulate)

	tr := env.trade(t, tradeID)
	assert.Equal(t, domain.PaymentCancel, tr.PaymentStatus)
	assert.NotNil(t, tr.PaymentCanceledAt)
}

func TestCancelPaymentNextDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	memberID := env.seedMember(t)
	tradeID := env.seedTrade(t, memberID, "500", "0")

	at := time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC)
	env.payments.WithClock(func() time.Time { return at })
	require.NoError(t, env.payments.ProcessPayment(ctx, tradeID))

	// Two hours later but across midnight: the daily window has moved on,
	// the monthly one has not.
	env.payments.WithClock(func() time.Time { return at.Add(2 * time.Hour) })
	require.NoError(t, env.payments.CancelPayment(ctx, tradeID))

	m := env.member(t, memberID)
	assertDecimal(t, "10000", m.Balance)
	assertDecimal(t, "500", m.DailyAccumulate)
	assertDecimal(t, "0", m.MonthlyAccumulate)
}

func TestCancelPaymentNextMonth(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	memberID := env.seedMember(t)
	tradeID := env.seedTrade(t, memberID, "500", "0")

	at := time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)
	env.payments.WithClock(func() time.Time { return at })
	require.NoError(t, env.payments.ProcessPayment(ctx, tradeID))

	env.payments.WithClock(func() time.Time { return at.Add(2 * time.Hour) })
	require.NoError(t, env.payments.CancelPayment(ctx, tradeID))

	m := env.member(t, memberID)
	assertDecimal(t, "10000", m.Balance)
	assertDecimal(t, "500", m.DailyAccumulate)
	assertDecimal(t, "500", m.MonthlyAccumulate)
}

func TestCancelPaymentNotDone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	memberID := env.seedMember(t)
	tradeID := env.seedTrade(t, memberID, "500", "0")

	err := env.payments.CancelPayment(ctx, tradeID)
	assert.ErrorIs(t, err, domain.ErrPaymentNotComplete)
}

func TestCancelPaymentRevokesPayback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	memberID := env.seedMember(t)
	tradeID := env.seedTrade(t, memberID, "500", "50")

	require.NoError(t, env.payments.ProcessPayment(ctx, tradeID))
	require.NoError(t, env.paybacks.ProcessPayback(ctx, tradeID))

	require.NoError(t, env.payments.CancelPayment(ctx, tradeID))

	m := env.member(t, memberID)
	assertDecimal(t, "10000", m.Balance)

	tr := env.trade(t, tradeID)
	assert.Equal(t, domain.PaymentCancel, tr.PaymentStatus)
	assert.Equal(t, domain.PaybackCancel, tr.PaybackStatus)
	assert.NotNil(t, tr.PaybackCanceledAt)
}

// A payback revocation the member cannot cover is logged and skipped; the
// payment cancellation itself still goes through.
func TestCancelPaymentPaybackFailureSwallowed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	memberID := env.seedMemberWith(t, usecase.CreateMemberInput{
		Name:         "tester",
		Balance:      dec("10000"),
		BalanceLimit: dec("20000"),
		OnceLimit:    dec("10000"),
		DailyLimit:   dec("20000"),
		MonthlyLimit: dec("20000"),
	})

	first := env.seedTrade(t, memberID, "500", "400")
	require.NoError(t, env.payments.ProcessPayment(ctx, first))
	require.NoError(t, env.paybacks.ProcessPayback(ctx, first))

	// Drain the balance below the payback amount.
	drain := env.seedTrade(t, memberID, "9850", "0")
	require.NoError(t, env.payments.ProcessPayment(ctx, drain))
	assertDecimal(t, "50", env.member(t, memberID).Balance)

	require.NoError(t, env.payments.CancelPayment(ctx, first))

	tr := env.trade(t, first)
	assert.Equal(t, domain.PaymentCancel, tr.PaymentStatus)
	assert.Equal(t, domain.PaybackDone, tr.PaybackStatus, "unrevokable payback stays DONE")

	// Only the payment refund lands.
	assertDecimal(t, "550", env.member(t, memberID).Balance)
}
