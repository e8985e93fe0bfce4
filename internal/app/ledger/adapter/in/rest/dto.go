package rest

import (
	"time"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
)

// Amounts travel as strings end to end so no precision is lost in JSON.

type createMemberRequest struct {
	Name         string `json:"name"`
	Balance      string `json:"balance"`
	BalanceLimit string `json:"balanceLimit"`
	OnceLimit    string `json:"onceLimit"`
	DailyLimit   string `json:"dailyLimit"`
	MonthlyLimit string `json:"monthlyLimit"`
}

type createMemberResponse struct {
	MemberID int64 `json:"memberId"`
}

type memberResponse struct {
	MemberID          int64  `json:"memberId"`
	Name              string `json:"name"`
	Balance           string `json:"balance"`
	BalanceLimit      string `json:"balanceLimit"`
	OnceLimit         string `json:"onceLimit"`
	DailyLimit        string `json:"dailyLimit"`
	MonthlyLimit      string `json:"monthlyLimit"`
	DailyAccumulate   string `json:"dailyAccumulate"`
	MonthlyAccumulate string `json:"monthlyAccumulate"`
	IsDeleted         bool   `json:"isDeleted"`
}

func newMemberResponse(m *domain.Member) memberResponse {
	return memberResponse{
		MemberID:          m.ID,
		Name:              m.Name,
		Balance:           m.Balance.String(),
		BalanceLimit:      m.BalanceLimit.String(),
		OnceLimit:         m.OnceLimit.String(),
		DailyLimit:        m.DailyLimit.String(),
		MonthlyLimit:      m.MonthlyLimit.String(),
		DailyAccumulate:   m.DailyAccumulate.String(),
		MonthlyAccumulate: m.MonthlyAccumulate.String(),
		IsDeleted:         m.IsDeleted,
	}
}

type requestTradeRequest struct {
	PaymentAmount string `json:"paymentAmount"`
	PaybackAmount string `json:"paybackAmount"`
}

type requestTradeResponse struct {
	TradeID int64 `json:"tradeId"`
}

type tradeResponse struct {
	TradeID           int64   `json:"tradeId"`
	MemberID          int64   `json:"memberId"`
	PaymentAmount     string  `json:"paymentAmount"`
	PaymentStatus     string  `json:"paymentStatus"`
	PaybackAmount     string  `json:"paybackAmount"`
	PaybackStatus     string  `json:"paybackStatus"`
	PaymentApprovedAt *string `json:"paymentApprovedAt"`
	PaymentCanceledAt *string `json:"paymentCanceledAt"`
	PaybackApprovedAt *string `json:"paybackApprovedAt"`
	PaybackCanceledAt *string `json:"paybackCanceledAt"`
}

func newTradeResponse(t *domain.Trade) tradeResponse {
	return tradeResponse{
		TradeID:           t.ID,
		MemberID:          t.MemberID,
		PaymentAmount:     t.PaymentAmount.String(),
		PaymentStatus:     string(t.PaymentStatus),
		PaybackAmount:     t.PaybackAmount.String(),
		PaybackStatus:     string(t.PaybackStatus),
		PaymentApprovedAt: formatTime(t.PaymentApprovedAt),
		PaymentCanceledAt: formatTime(t.PaymentCanceledAt),
		PaybackApprovedAt: formatTime(t.PaybackApprovedAt),
		PaybackCanceledAt: formatTime(t.PaybackCanceledAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}

// errorResponse is the error body: HTTP-equivalent status, human-readable
// message and, for creation input, a field → message map.
type errorResponse struct {
	Status     int               `json:"status"`
	Message    string            `json:"message"`
	Validation map[string]string `json:"validation,omitempty"`
}
