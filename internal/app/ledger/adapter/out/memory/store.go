// Package memory implements the Store port on plain maps with per-row
// mutexes. It backs the concurrency tests and the dev storage backend;
// with a journal attached, committed mutations are replayed on restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/usecase"
	"github.com/f1v3-dev/lemontree-interview/pkg/wal"
)

type memberSlot struct {
	mu  sync.Mutex
	val domain.Member
}

type tradeSlot struct {
	mu  sync.Mutex
	val domain.Trade
}

// Store keeps members and trades in memory. The maps and id counters are
// guarded by mu; each row carries its own mutex, which InTx transactions
// hold from GetForUpdate until commit or rollback, the same exclusive
// row-lock discipline the MySQL adapter gets from FOR UPDATE.
type Store struct {
	mu           sync.Mutex
	members      map[int64]*memberSlot
	trades       map[int64]*tradeSlot
	nextMemberID int64
	nextTradeID  int64
	journal      *wal.WAL
}

// commitRecord is one journaled mutation batch.
type commitRecord struct {
	ID      string          `json:"id"`
	Members []domain.Member `json:"members,omitempty"`
	Trades  []domain.Trade  `json:"trades,omitempty"`
	Reset   string          `json:"reset,omitempty"` // "daily" or "monthly"
}

// NewStore builds an empty store. A non-nil journal is replayed first and
// then receives every committed mutation.
func NewStore(journal *wal.WAL) (*Store, error) {
	s := &Store{
		members:      make(map[int64]*memberSlot),
		trades:       make(map[int64]*tradeSlot),
		nextMemberID: 1,
		nextTradeID:  1,
		journal:      journal,
	}
	if journal != nil {
		if err := s.replay(); err != nil {
			return nil, fmt.Errorf("replay journal: %w", err)
		}
	}
	return s, nil
}

func (s *Store) replay() error {
	return s.journal.ReadAll(func(raw []byte) error {
		var rec commitRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		for i := range rec.Members {
			m := rec.Members[i]
			s.members[m.ID] = &memberSlot{val: m}
			if m.ID >= s.nextMemberID {
				s.nextMemberID = m.ID + 1
			}
		}
		for i := range rec.Trades {
			t := rec.Trades[i]
			s.trades[t.ID] = &tradeSlot{val: t}
			if t.ID >= s.nextTradeID {
				s.nextTradeID = t.ID + 1
			}
		}
		switch rec.Reset {
		case "daily":
			for _, slot := range s.members {
				slot.val.DailyAccumulate = decimal.Zero
			}
		case "monthly":
			for _, slot := range s.members {
				slot.val.MonthlyAccumulate = decimal.Zero
			}
		}
		return nil
	})
}

// appendJournal writes one commit record. Callers hold s.mu, so records
// land in the journal in commit order.
func (s *Store) appendJournal(rec commitRecord) error {
	if s.journal == nil {
		return nil
	}
	rec.ID = uuid.NewString()
	return s.journal.Write(rec)
}

func (s *Store) Members() usecase.MemberRepository {
	return &memberRepo{s: s}
}

func (s *Store) Trades() usecase.TradeRepository {
	return &tradeRepo{s: s}
}

// InTx runs fn against a transactional view. Row locks taken via
// GetForUpdate stay held until fn returns; mutations are staged on copies
// and written back only when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(usecase.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &txStore{
		root:    s,
		members: make(map[int64]*domain.Member),
		trades:  make(map[int64]*domain.Trade),
	}
	defer tx.unlock()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type txStore struct {
	root    *Store
	unlocks []func()

	// working copies keyed by id, plus rows created in this transaction
	members    map[int64]*domain.Member
	trades     map[int64]*domain.Trade
	newMembers []*domain.Member
	newTrades  []*domain.Trade
}

func (tx *txStore) Members() usecase.MemberRepository {
	return &memberRepo{s: tx.root, tx: tx}
}

func (tx *txStore) Trades() usecase.TradeRepository {
	return &tradeRepo{s: tx.root, tx: tx}
}

// InTx inside a transaction joins the current one.
func (tx *txStore) InTx(ctx context.Context, fn func(usecase.Store) error) error {
	return fn(tx)
}

func (tx *txStore) unlock() {
	for i := len(tx.unlocks) - 1; i >= 0; i-- {
		tx.unlocks[i]()
	}
	tx.unlocks = nil
}

func (tx *txStore) commit() error {
	rec := commitRecord{}
	for _, m := range tx.members {
		rec.Members = append(rec.Members, *m)
	}
	for _, m := range tx.newMembers {
		rec.Members = append(rec.Members, *m)
	}
	for _, t := range tx.trades {
		rec.Trades = append(rec.Trades, *t)
	}
	for _, t := range tx.newTrades {
		rec.Trades = append(rec.Trades, *t)
	}
	if len(rec.Members) == 0 && len(rec.Trades) == 0 {
		return nil
	}

	tx.root.mu.Lock()
	defer tx.root.mu.Unlock()

	if err := tx.root.appendJournal(rec); err != nil {
		return err
	}

	for _, m := range tx.members {
		if slot, ok := tx.root.members[m.ID]; ok {
			slot.val = *m
		}
	}
	for _, m := range tx.newMembers {
		tx.root.members[m.ID] = &memberSlot{val: *m}
	}
	for _, t := range tx.trades {
		if slot, ok := tx.root.trades[t.ID]; ok {
			slot.val = *t
		}
	}
	for _, t := range tx.newTrades {
		tx.root.trades[t.ID] = &tradeSlot{val: *t}
	}
	return nil
}

type memberRepo struct {
	s  *Store
	tx *txStore
}

func (r *memberRepo) Create(ctx context.Context, member *domain.Member) error {
	r.s.mu.Lock()
	member.ID = r.s.nextMemberID
	r.s.nextMemberID++

	if r.tx != nil {
		r.s.mu.Unlock()
		r.tx.newMembers = append(r.tx.newMembers, member)
		return nil
	}

	defer r.s.mu.Unlock()
	if err := r.s.appendJournal(commitRecord{Members: []domain.Member{*member}}); err != nil {
		return err
	}
	r.s.members[member.ID] = &memberSlot{val: *member}
	return nil
}

func (r *memberRepo) Get(ctx context.Context, id int64) (*domain.Member, error) {
	if r.tx != nil {
		if m, ok := r.tx.members[id]; ok {
			return m, nil
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.members[id]
	if !ok || slot.val.IsDeleted {
		return nil, domain.ErrMemberNotFound
	}
	m := slot.val
	return &m, nil
}

func (r *memberRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Member, error) {
	if r.tx == nil {
		return nil, fmt.Errorf("GetForUpdate requires a transaction")
	}
	if m, ok := r.tx.members[id]; ok {
		return m, nil
	}

	r.s.mu.Lock()
	slot, ok := r.s.members[id]
	r.s.mu.Unlock()
	if !ok {
		return nil, domain.ErrMemberNotFound
	}

	// Block here until any holder commits or rolls back, then read the row
	// under the lock we now own.
	slot.mu.Lock()
	r.tx.unlocks = append(r.tx.unlocks, slot.mu.Unlock)

	r.s.mu.Lock()
	val := slot.val
	r.s.mu.Unlock()
	if val.IsDeleted {
		return nil, domain.ErrMemberNotFound
	}

	m := val
	r.tx.members[id] = &m
	return &m, nil
}

func (r *memberRepo) Exists(ctx context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.members[id]
	return ok && !slot.val.IsDeleted, nil
}

func (r *memberRepo) Update(ctx context.Context, member *domain.Member) error {
	if r.tx != nil {
		r.tx.members[member.ID] = member
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.members[member.ID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	if err := r.s.appendJournal(commitRecord{Members: []domain.Member{*member}}); err != nil {
		return err
	}
	slot.val = *member
	return nil
}

func (r *memberRepo) SoftDelete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.members[id]
	if !ok || slot.val.IsDeleted {
		return domain.ErrMemberNotFound
	}
	m := slot.val
	m.IsDeleted = true
	if err := r.s.appendJournal(commitRecord{Members: []domain.Member{m}}); err != nil {
		return err
	}
	slot.val = m
	return nil
}

func (r *memberRepo) ResetDailyAccumulate(ctx context.Context) error {
	return r.s.resetAccumulate("daily")
}

func (r *memberRepo) ResetMonthlyAccumulate(ctx context.Context) error {
	return r.s.resetAccumulate("monthly")
}

// resetAccumulate zeroes one accumulator for every member. It waits on
// every member's row lock first, the way the bulk UPDATE statement waits
// on FOR UPDATE locks, so an in-flight transaction commits before its
// member is zeroed instead of overwriting the reset afterward. A
// transaction only ever holds one member row, so acquiring them all in
// map order cannot deadlock.
func (s *Store) resetAccumulate(period string) error {
	s.mu.Lock()
	slots := make([]*memberSlot, 0, len(s.members))
	for _, slot := range s.members {
		slots = append(slots, slot)
	}
	s.mu.Unlock()

	for _, slot := range slots {
		slot.mu.Lock()
	}
	defer func() {
		for _, slot := range slots {
			slot.mu.Unlock()
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendJournal(commitRecord{Reset: period}); err != nil {
		return err
	}
	for _, slot := range slots {
		switch period {
		case "daily":
			slot.val.DailyAccumulate = decimal.Zero
		case "monthly":
			slot.val.MonthlyAccumulate = decimal.Zero
		}
	}
	return nil
}

type tradeRepo struct {
	s  *Store
	tx *txStore
}

func (r *tradeRepo) Create(ctx context.Context, trade *domain.Trade) error {
	r.s.mu.Lock()
	trade.ID = r.s.nextTradeID
	r.s.nextTradeID++

	if r.tx != nil {
		r.s.mu.Unlock()
		r.tx.newTrades = append(r.tx.newTrades, trade)
		return nil
	}

	defer r.s.mu.Unlock()
	if err := r.s.appendJournal(commitRecord{Trades: []domain.Trade{*trade}}); err != nil {
		return err
	}
	r.s.trades[trade.ID] = &tradeSlot{val: *trade}
	return nil
}

func (r *tradeRepo) Get(ctx context.Context, id int64) (*domain.Trade, error) {
	if r.tx != nil {
		if t, ok := r.tx.trades[id]; ok {
			return t, nil
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.trades[id]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	t := slot.val
	return &t, nil
}

func (r *tradeRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Trade, error) {
	if r.tx == nil {
		return nil, fmt.Errorf("GetForUpdate requires a transaction")
	}
	if t, ok := r.tx.trades[id]; ok {
		return t, nil
	}

	r.s.mu.Lock()
	slot, ok := r.s.trades[id]
	r.s.mu.Unlock()
	if !ok {
		return nil, domain.ErrTradeNotFound
	}

	slot.mu.Lock()
	r.tx.unlocks = append(r.tx.unlocks, slot.mu.Unlock)

	r.s.mu.Lock()
	val := slot.val
	r.s.mu.Unlock()

	t := val
	r.tx.trades[id] = &t
	return &t, nil
}

func (r *tradeRepo) Update(ctx context.Context, trade *domain.Trade) error {
	if r.tx != nil {
		r.tx.trades[trade.ID] = trade
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.trades[trade.ID]
	if !ok {
		return domain.ErrTradeNotFound
	}
	if err := r.s.appendJournal(commitRecord{Trades: []domain.Trade{*trade}}); err != nil {
		return err
	}
	slot.val = *trade
	return nil
}

var _ usecase.Store = (*Store)(nil)
