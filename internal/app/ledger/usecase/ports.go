package usecase

import (
	"context"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
)

// MemberRepository is the member persistence port. Reads skip soft-deleted
// members.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) error
	Get(ctx context.Context, id int64) (*domain.Member, error)
	// GetForUpdate reads the member under an exclusive row lock held for
	// the rest of the enclosing transaction.
	GetForUpdate(ctx context.Context, id int64) (*domain.Member, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, member *domain.Member) error
	SoftDelete(ctx context.Context, id int64) error

	// Bulk resets across all members in one operation. They run outside
	// InTx but still wait on held row locks, so an in-flight transaction
	// commits before its member is zeroed.
	ResetDailyAccumulate(ctx context.Context) error
	ResetMonthlyAccumulate(ctx context.Context) error
}

// TradeRepository is the trade persistence port. Trades are never deleted.
type TradeRepository interface {
	Create(ctx context.Context, trade *domain.Trade) error
	Get(ctx context.Context, id int64) (*domain.Trade, error)
	// GetForUpdate reads the trade under an exclusive row lock held for the
	// rest of the enclosing transaction.
	GetForUpdate(ctx context.Context, id int64) (*domain.Trade, error)
	Update(ctx context.Context, trade *domain.Trade) error
}

// Store bundles the repositories with a transaction boundary.
type Store interface {
	Members() MemberRepository
	Trades() TradeRepository

	// InTx runs fn inside one bounded, snapshot-isolated storage
	// transaction. Row locks acquired through GetForUpdate are released
	// when fn returns; any error rolls every mutation back.
	InTx(ctx context.Context, fn func(s Store) error) error
}
