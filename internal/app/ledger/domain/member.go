package domain

import (
	"github.com/shopspring/decimal"
)

// Member owns a balance with a holdable ceiling, per-transaction/daily/
// monthly spending limits, and the running accumulators those limits are
// checked against. Fields are exported for the storage adapters; all
// mutations go through the methods below so the invariants hold:
// 0 <= Balance <= BalanceLimit, accumulators >= 0,
// OnceLimit <= DailyLimit <= MonthlyLimit.
type Member struct {
	ID                int64
	Name              string
	Balance           decimal.Decimal
	BalanceLimit      decimal.Decimal
	OnceLimit         decimal.Decimal
	DailyLimit        decimal.Decimal
	MonthlyLimit      decimal.Decimal
	DailyAccumulate   decimal.Decimal
	MonthlyAccumulate decimal.Decimal
	IsDeleted         bool
}

// NewMember validates the creation input and returns a member with both
// accumulators at zero. Violations come back as a single validation error
// with one message per offending field.
func NewMember(name string, balance, balanceLimit, onceLimit, dailyLimit, monthlyLimit decimal.Decimal) (*Member, error) {
	fields := make(map[string]string)

	if balance.Sign() < 0 {
		fields["balance"] = "balance must be 0 or more"
	}
	if balanceLimit.Sign() < 0 {
		fields["balanceLimit"] = "balance limit must be 0 or more"
	}
	if balance.GreaterThan(balanceLimit) {
		fields["balance"] = "balance must not exceed the balance limit"
	}
	if onceLimit.Sign() < 0 {
		fields["onceLimit"] = "once limit must be 0 or more"
	}
	if dailyLimit.Sign() < 0 {
		fields["dailyLimit"] = "daily limit must be 0 or more"
	}
	if monthlyLimit.Sign() < 0 {
		fields["monthlyLimit"] = "monthly limit must be 0 or more"
	}
	if onceLimit.GreaterThan(dailyLimit) {
		fields["onceLimit"] = "once limit must not exceed the daily limit"
	}
	if dailyLimit.GreaterThan(monthlyLimit) {
		fields["dailyLimit"] = "daily limit must not exceed the monthly limit"
	}

	if len(fields) > 0 {
		return nil, NewValidationError(fields)
	}

	return &Member{
		Name:              name,
		Balance:           balance,
		BalanceLimit:      balanceLimit,
		OnceLimit:         onceLimit,
		DailyLimit:        dailyLimit,
		MonthlyLimit:      monthlyLimit,
		DailyAccumulate:   decimal.Zero,
		MonthlyAccumulate: decimal.Zero,
	}, nil
}

// Pay debits the balance and raises both accumulators. Nothing is mutated
// when the balance falls short.
func (m *Member) Pay(amount decimal.Decimal) error {
	if m.Balance.LessThan(amount) {
		return ErrBalanceLack
	}

	m.Balance = m.Balance.Sub(amount)
	m.DailyAccumulate = m.DailyAccumulate.Add(amount)
	m.MonthlyAccumulate = m.MonthlyAccumulate.Add(amount)
	return nil
}

// Payback credits the payback amount, refusing to push the balance over
// the ceiling.
func (m *Member) Payback(amount decimal.Decimal) error {
	return m.addBalance(amount)
}

// CancelPayment refunds a canceled payment to the balance. The ceiling
// still applies.
func (m *Member) CancelPayment(amount decimal.Decimal) error {
	return m.addBalance(amount)
}

// CancelPayback revokes an issued payback. More cannot be revoked than is
// currently held.
func (m *Member) CancelPayback(amount decimal.Decimal) error {
	if m.Balance.LessThan(amount) {
		return ErrBalanceLack
	}
	m.Balance = m.Balance.Sub(amount)
	return nil
}

// DecreaseDailyAccumulate unwinds a payment's contribution to the daily
// accumulator. Callers invoke it only when the cancellation falls on the
// same calendar day as the payment approval.
func (m *Member) DecreaseDailyAccumulate(amount decimal.Decimal) {
	m.DailyAccumulate = m.DailyAccumulate.Sub(amount)
}

// DecreaseMonthlyAccumulate unwinds a payment's contribution to the
// monthly accumulator, for cancellations within the approval month.
func (m *Member) DecreaseMonthlyAccumulate(amount decimal.Decimal) {
	m.MonthlyAccumulate = m.MonthlyAccumulate.Sub(amount)
}

func (m *Member) addBalance(amount decimal.Decimal) error {
	added := m.Balance.Add(amount)
	if added.GreaterThan(m.BalanceLimit) {
		return ErrBalanceExceeded
	}
	m.Balance = added
	return nil
}
