package gormstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/adapter/out/gormstore"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/usecase"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestStore(t *testing.T) *gormstore.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// an in-memory sqlite database exists per connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store := gormstore.New(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func seedMember(t *testing.T, store *gormstore.Store) *domain.Member {
	t.Helper()
	m, err := domain.NewMember("tester", dec("10000"), dec("20000"), dec("5000"), dec("10000"), dec("30000"))
	require.NoError(t, err)
	require.NoError(t, store.Members().Create(context.Background(), m))
	return m
}

func seedTrade(t *testing.T, store *gormstore.Store, memberID int64) *domain.Trade {
	t.Helper()
	tr, err := domain.NewTrade(memberID, dec("500"), dec("50"))
	require.NoError(t, err)
	require.NoError(t, store.Trades().Create(context.Background(), tr))
	return tr
}

func TestMemberRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	m := seedMember(t, store)
	require.NotZero(t, m.ID)

	got, err := store.Members().Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "tester", got.Name)
	assert.True(t, got.Balance.Equal(dec("10000")))
	assert.True(t, got.DailyAccumulate.IsZero())

	_, err = store.Members().Get(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestMemberUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m := seedMember(t, store)

	m.Balance = dec("9500")
	m.DailyAccumulate = dec("500")
	require.NoError(t, store.Members().Update(ctx, m))

	got, err := store.Members().Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("9500")))
	assert.True(t, got.DailyAccumulate.Equal(dec("500")))
}

func TestMemberSoftDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m := seedMember(t, store)

	require.NoError(t, store.Members().SoftDelete(ctx, m.ID))

	_, err := store.Members().Get(ctx, m.ID)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	exists, err := store.Members().Exists(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	// Already gone; a second delete touches no row.
	err = store.Members().SoftDelete(ctx, m.ID)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestTradeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m := seedMember(t, store)
	tr := seedTrade(t, store, m.ID)

	got, err := store.Trades().Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.MemberID)
	assert.Equal(t, domain.PaymentWait, got.PaymentStatus)
	assert.Equal(t, domain.PaybackWait, got.PaybackStatus)
	assert.Nil(t, got.PaymentApprovedAt)

	_, err = store.Trades().Get(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrTradeNotFound)
}

func TestInTxRollback(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m := seedMember(t, store)

	boom := errors.New("boom")
	err := store.InTx(ctx, func(s usecase.Store) error {
		locked, err := s.Members().GetForUpdate(ctx, m.ID)
		if err != nil {
			return err
		}
		locked.Balance = dec("1")
		if err := s.Members().Update(ctx, locked); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Members().Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("10000")))
}

func TestInTxCommit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m := seedMember(t, store)
	tr := seedTrade(t, store, m.ID)

	err := store.InTx(ctx, func(s usecase.Store) error {
		member, err := s.Members().GetForUpdate(ctx, m.ID)
		if err != nil {
			return err
		}
		trade, err := s.Trades().GetForUpdate(ctx, tr.ID)
		if err != nil {
			return err
		}

		if err := member.Pay(trade.PaymentAmount); err != nil {
			return err
		}
		if err := s.Members().Update(ctx, member); err != nil {
			return err
		}
		return s.Trades().Update(ctx, trade)
	})
	require.NoError(t, err)

	got, err := store.Members().Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("9500")))
	assert.True(t, got.DailyAccumulate.Equal(dec("500")))
}

func TestInTxCanceledContext(t *testing.T) {
	store := newTestStore(t)
	m := seedMember(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.InTx(ctx, func(s usecase.Store) error {
		_, err := s.Members().GetForUpdate(ctx, m.ID)
		return err
	})
	assert.Error(t, err, "a canceled caller context must refuse the transaction")
}

func TestResetAccumulators(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		m := seedMember(t, store)
		m.DailyAccumulate = dec("100")
		m.MonthlyAccumulate = dec("300")
		require.NoError(t, store.Members().Update(ctx, m))
	}

	require.NoError(t, store.Members().ResetDailyAccumulate(ctx))

	for id := int64(1); id <= 3; id++ {
		m, err := store.Members().Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, m.DailyAccumulate.IsZero())
		assert.True(t, m.MonthlyAccumulate.Equal(dec("300")))
	}

	require.NoError(t, store.Members().ResetMonthlyAccumulate(ctx))
	m, err := store.Members().Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, m.MonthlyAccumulate.IsZero())

	// Idempotent on an already-zeroed table.
	require.NoError(t, store.Members().ResetDailyAccumulate(ctx))
}
