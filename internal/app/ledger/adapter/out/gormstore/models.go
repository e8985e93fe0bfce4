package gormstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
)

// memberRow maps the member table.
type memberRow struct {
	ID                int64           `gorm:"column:member_id;primaryKey;autoIncrement"`
	Name              string          `gorm:"column:name;not null"`
	Balance           decimal.Decimal `gorm:"column:balance;type:decimal(19,2);not null"`
	BalanceLimit      decimal.Decimal `gorm:"column:balance_limit;type:decimal(19,2);not null"`
	OnceLimit         decimal.Decimal `gorm:"column:once_limit;type:decimal(19,2);not null"`
	DailyLimit        decimal.Decimal `gorm:"column:daily_limit;type:decimal(19,2);not null"`
	MonthlyLimit      decimal.Decimal `gorm:"column:monthly_limit;type:decimal(19,2);not null"`
	DailyAccumulate   decimal.Decimal `gorm:"column:daily_accumulate;type:decimal(19,2);not null"`
	MonthlyAccumulate decimal.Decimal `gorm:"column:monthly_accumulate;type:decimal(19,2);not null"`
	IsDeleted         bool            `gorm:"column:is_deleted;not null"`
}

func (*memberRow) TableName() string {
	return "member"
}

// tradeRow maps the trade table. Trades are never deleted.
type tradeRow struct {
	ID                int64           `gorm:"column:trade_id;primaryKey;autoIncrement"`
	MemberID          int64           `gorm:"column:member_id;not null;index:idx_trade_member_id"`
	PaymentAmount     decimal.Decimal `gorm:"column:payment_amount;type:decimal(19,2);not null"`
	PaymentStatus     string          `gorm:"column:payment_status;type:varchar(10);not null"`
	PaybackAmount     decimal.Decimal `gorm:"column:payback_amount;type:decimal(19,2);not null"`
	PaybackStatus     string          `gorm:"column:payback_status;type:varchar(10);not null"`
	PaymentApprovedAt *time.Time      `gorm:"column:payment_approved_at"`
	PaymentCanceledAt *time.Time      `gorm:"column:payment_canceled_at"`
	PaybackApprovedAt *time.Time      `gorm:"column:payback_approved_at"`
	PaybackCanceledAt *time.Time      `gorm:"column:payback_canceled_at"`
}

func (*tradeRow) TableName() string {
	return "trade"
}

func memberToRow(m *domain.Member) memberRow {
	return memberRow{
		ID:                m.ID,
		Name:              m.Name,
		Balance:           m.Balance,
		BalanceLimit:      m.BalanceLimit,
		OnceLimit:         m.OnceLimit,
		DailyLimit:        m.DailyLimit,
		MonthlyLimit:      m.MonthlyLimit,
		DailyAccumulate:   m.DailyAccumulate,
		MonthlyAccumulate: m.MonthlyAccumulate,
		IsDeleted:         m.IsDeleted,
	}
}

func (r *memberRow) toDomain() *domain.Member {
	return &domain.Member{
		ID:                r.ID,
		Name:              r.Name,
		Balance:           r.Balance,
		BalanceLimit:      r.BalanceLimit,
		OnceLimit:         r.OnceLimit,
		DailyLimit:        r.DailyLimit,
		MonthlyLimit:      r.MonthlyLimit,
		DailyAccumulate:   r.DailyAccumulate,
		MonthlyAccumulate: r.MonthlyAccumulate,
		IsDeleted:         r.IsDeleted,
	}
}

func tradeToRow(t *domain.Trade) tradeRow {
	return tradeRow{
		ID:                t.ID,
		MemberID:          t.MemberID,
		PaymentAmount:     t.PaymentAmount,
		PaymentStatus:     string(t.PaymentStatus),
		PaybackAmount:     t.PaybackAmount,
		PaybackStatus:     string(t.PaybackStatus),
		PaymentApprovedAt: t.PaymentApprovedAt,
		PaymentCanceledAt: t.PaymentCanceledAt,
		PaybackApprovedAt: t.PaybackApprovedAt,
		PaybackCanceledAt: t.PaybackCanceledAt,
	}
}

func (r *tradeRow) toDomain() *domain.Trade {
	return &domain.Trade{
		ID:                r.ID,
		MemberID:          r.MemberID,
		PaymentAmount:     r.PaymentAmount,
		PaymentStatus:     domain.PaymentStatus(r.PaymentStatus),
		PaybackAmount:     r.PaybackAmount,
		PaybackStatus:     domain.PaybackStatus(r.PaybackStatus),
		PaymentApprovedAt: r.PaymentApprovedAt,
		PaymentCanceledAt: r.PaymentCanceledAt,
		PaybackApprovedAt: r.PaybackApprovedAt,
		PaybackCanceledAt: r.PaybackCanceledAt,
	}
}
