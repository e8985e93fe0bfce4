// Package gormstore implements the Store port on GORM. MySQL is the
// production backend; the tests run the same code on sqlite, which takes a
// database-level write lock per transaction instead of row locks.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/usecase"
)

// txTimeout bounds every engine transaction.
const txTimeout = 5 * time.Second

type Store struct {
	db *gorm.DB
	// rowLocking is true on backends that understand SELECT ... FOR UPDATE.
	rowLocking bool
	// inTx marks a Store handed to an InTx callback; its db already
	// carries the deadline-bound transaction context.
	inTx bool
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		rowLocking: db.Dialector.Name() == "mysql",
	}
}

// AutoMigrate creates or updates the member and trade tables.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&memberRow{}, &tradeRow{})
}

func (s *Store) Members() usecase.MemberRepository {
	return &memberRepo{st: s}
}

func (s *Store) Trades() usecase.TradeRepository {
	return &tradeRepo{st: s}
}

// InTx runs fn in one bounded REPEATABLE READ transaction. Row locks taken
// by GetForUpdate are held until commit or rollback. Every statement in fn,
// including lock-waiting reads, runs under the transaction context and so
// is cut off at the timeout.
func (s *Store) InTx(ctx context.Context, fn func(usecase.Store) error) error {
	txCtx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	return s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, rowLocking: s.rowLocking, inTx: true})
	}, s.txOptions()...)
}

// session returns the statement handle for one repository call. Inside a
// transaction the handle keeps the transaction context rather than
// rebinding the caller's, so the timeout bounds each statement.
func (s *Store) session(ctx context.Context) *gorm.DB {
	if s.inTx {
		return s.db
	}
	return s.db.WithContext(ctx)
}

func (s *Store) txOptions() []*sql.TxOptions {
	if !s.rowLocking {
		// sqlite accepts only its default isolation
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead}}
}

// forUpdate adds the exclusive-lock clause where the backend supports it.
func (s *Store) forUpdate(db *gorm.DB) *gorm.DB {
	if !s.rowLocking {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

type memberRepo struct {
	st *Store
}

func (r *memberRepo) Create(ctx context.Context, member *domain.Member) error {
	row := memberToRow(member)
	if err := r.st.session(ctx).Create(&row).Error; err != nil {
		return err
	}
	member.ID = row.ID
	return nil
}

func (r *memberRepo) Get(ctx context.Context, id int64) (*domain.Member, error) {
	return r.get(r.st.session(ctx), id)
}

func (r *memberRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Member, error) {
	return r.get(r.st.forUpdate(r.st.session(ctx)), id)
}

func (r *memberRepo) get(db *gorm.DB, id int64) (*domain.Member, error) {
	var row memberRow
	err := db.Where("member_id = ? AND is_deleted = ?", id, false).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *memberRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.st.session(ctx).
		Model(&memberRow{}).
		Where("member_id = ? AND is_deleted = ?", id, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *memberRepo) Update(ctx context.Context, member *domain.Member) error {
	row := memberToRow(member)
	return r.st.session(ctx).Save(&row).Error
}

func (r *memberRepo) SoftDelete(ctx context.Context, id int64) error {
	result := r.st.session(ctx).
		Model(&memberRow{}).
		Where("member_id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

// ResetDailyAccumulate zeroes the column for every member in one
// statement, outside per-row locking.
func (r *memberRepo) ResetDailyAccumulate(ctx context.Context) error {
	return r.st.session(ctx).Exec("UPDATE member SET daily_accumulate = 0").Error
}

func (r *memberRepo) ResetMonthlyAccumulate(ctx context.Context) error {
	return r.st.session(ctx).Exec("UPDATE member SET monthly_accumulate = 0").Error
}

type tradeRepo struct {
	st *Store
}

func (r *tradeRepo) Create(ctx context.Context, trade *domain.Trade) error {
	row := tradeToRow(trade)
	if err := r.st.session(ctx).Create(&row).Error; err != nil {
		return err
	}
	trade.ID = row.ID
	return nil
}

func (r *tradeRepo) Get(ctx context.Context, id int64) (*domain.Trade, error) {
	return r.get(r.st.session(ctx), id)
}

func (r *tradeRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Trade, error) {
	return r.get(r.st.forUpdate(r.st.session(ctx)), id)
}

func (r *tradeRepo) get(db *gorm.DB, id int64) (*domain.Trade, error) {
	var row tradeRow
	err := db.Where("trade_id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTradeNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *tradeRepo) Update(ctx context.Context, trade *domain.Trade) error {
	row := tradeToRow(trade)
	return r.st.session(ctx).Save(&row).Error
}

var _ usecase.Store = (*Store)(nil)
