// Package rest is the HTTP adapter over the ledger engines.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/domain"
	"github.com/f1v3-dev/lemontree-interview/internal/app/ledger/usecase"
	"github.com/f1v3-dev/lemontree-interview/pkg/money"
)

type Server struct {
	members  *usecase.MemberUseCase
	trades   *usecase.TradeUseCase
	payments *usecase.PaymentUseCase
	paybacks *usecase.PaybackUseCase
	log      *logrus.Logger
	metrics  http.Handler
}

func NewServer(
	members *usecase.MemberUseCase,
	trades *usecase.TradeUseCase,
	payments *usecase.PaymentUseCase,
	paybacks *usecase.PaybackUseCase,
	log *logrus.Logger,
	metricsHandler http.Handler,
) *Server {
	return &Server{
		members:  members,
		trades:   trades,
		payments: payments,
		paybacks: paybacks,
		log:      log,
		metrics:  metricsHandler,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/members", s.createMember)
		api.Get("/members/{memberID}", s.getMember)
		api.Delete("/members/{memberID}", s.deleteMember)
		api.Post("/members/{memberID}/trades", s.requestTrade)

		api.Get("/trades/{tradeID}", s.getTrade)
		api.Post("/trades/{tradeID}/payment", s.processPayment)
		api.Delete("/trades/{tradeID}/payment", s.cancelPayment)
		api.Post("/trades/{tradeID}/payback", s.processPayback)
		api.Delete("/trades/{tradeID}/payback", s.cancelPayback)
	})

	return r
}

// requestLogger tags every request with a uuid and logs method, path,
// status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
		}).Info("request handled")
	})
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.NewValidationError(map[string]string{"body": "malformed json"}))
		return
	}

	amounts := map[string]string{
		"balance":      req.Balance,
		"balanceLimit": req.BalanceLimit,
		"onceLimit":    req.OnceLimit,
		"dailyLimit":   req.DailyLimit,
		"monthlyLimit": req.MonthlyLimit,
	}
	parsed := make(map[string]decimal.Decimal, len(amounts))
	fields := make(map[string]string)
	for field, raw := range amounts {
		d, err := money.FromString(raw)
		if err != nil {
			fields[field] = "must be a decimal amount"
			continue
		}
		parsed[field] = d
	}
	if len(fields) > 0 {
		s.writeError(w, domain.NewValidationError(fields))
		return
	}

	memberID, err := s.members.CreateMember(r.Context(), usecase.CreateMemberInput{
		Name:         req.Name,
		Balance:      parsed["balance"],
		BalanceLimit: parsed["balanceLimit"],
		OnceLimit:    parsed["onceLimit"],
		DailyLimit:   parsed["dailyLimit"],
		MonthlyLimit: parsed["monthlyLimit"],
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, createMemberResponse{MemberID: memberID})
}

func (s *Server) getMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberID")
	if err != nil {
		s.writeError(w, domain.ErrMemberNotFound)
		return
	}

	member, err := s.members.GetMember(r.Context(), memberID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newMemberResponse(member))
}

func (s *Server) deleteMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberID")
	if err != nil {
		s.writeError(w, domain.ErrMemberNotFound)
		return
	}

	if err := s.members.DeleteMember(r.Context(), memberID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requestTrade(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "memberID")
	if err != nil {
		s.writeError(w, domain.ErrMemberNotFound)
		return
	}

	var req requestTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.NewValidationError(map[string]string{"body": "malformed json"}))
		return
	}

	fields := make(map[string]string)
	paymentAmount, err := money.FromString(req.PaymentAmount)
	if err != nil {
		fields["paymentAmount"] = "must be a decimal amount"
	}
	paybackAmount, err := money.FromString(req.PaybackAmount)
	if err != nil {
		fields["paybackAmount"] = "must be a decimal amount"
	}
	if len(fields) > 0 {
		s.writeError(w, domain.NewValidationError(fields))
		return
	}

	tradeID, err := s.trades.RequestTrade(r.Context(), memberID, paymentAmount, paybackAmount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, requestTradeResponse{TradeID: tradeID})
}

func (s *Server) getTrade(w http.ResponseWriter, r *http.Request) {
	tradeID, err := pathID(r, "tradeID")
	if err != nil {
		s.writeError(w, domain.ErrTradeNotFound)
		return
	}

	trade, err := s.trades.GetTrade(r.Context(), tradeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newTradeResponse(trade))
}

func (s *Server) processPayment(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, s.payments.ProcessPayment)
}

func (s *Server) cancelPayment(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, s.payments.CancelPayment)
}

func (s *Server) processPayback(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, s.paybacks.ProcessPayback)
}

func (s *Server) cancelPayback(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, s.paybacks.CancelPayback)
}

func (s *Server) tradeAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, tradeID int64) error) {
	tradeID, err := pathID(r, "tradeID")
	if err != nil {
		s.writeError(w, domain.ErrTradeNotFound)
		return
	}

	if err := action(r.Context(), tradeID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("encode response failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		s.writeJSON(w, domainErr.Status, errorResponse{
			Status:     domainErr.Status,
			Message:    domainErr.Message,
			Validation: domainErr.Validation,
		})
		return
	}

	s.log.WithError(err).Error("internal error")
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
	})
}
