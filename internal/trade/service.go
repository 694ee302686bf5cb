// Package trade provides the trading engine and its HTTP handlers: buying
// and selling player shares, price quotes, and portfolio views.
//
// All monetary values use shopspring/decimal, never float64 for money.
package trade

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/frodan/league-exchange/internal/apperr"
	"github.com/frodan/league-exchange/internal/directory"
	"github.com/frodan/league-exchange/internal/events"
	"github.com/frodan/league-exchange/internal/handle"
	"github.com/frodan/league-exchange/internal/identity"
	"github.com/frodan/league-exchange/internal/metrics"
	"github.com/frodan/league-exchange/internal/model"
)

// publishTimeout bounds event delivery after a commit.
const publishTimeout = 5 * time.Second

// Service exposes the engine over HTTP. The caller's identity comes from
// the request context; the membership is the user's membership in their
// current league.
type Service struct {
	engine    *Engine
	leagues   directory.Leagues
	publisher events.Publisher
	wsHub     *WSHub // optional WebSocket hub for real-time broadcasts
	log       *zap.Logger
}

// NewService creates a new trade service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(engine *Engine, leagues directory.Leagues, publisher events.Publisher, hub *WSHub, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		engine:    engine,
		leagues:   leagues,
		publisher: publisher,
		wsHub:     hub,
		log:       log,
	}
}

// Routes mounts the handlers on r.
func (s *Service) Routes(r chi.Router) {
	r.Post("/players/{gameName}/{tagLine}/{transactionType}", s.SubmitTransaction)
	r.Get("/players/{gameName}/{tagLine}/price", s.GetPrice)
	r.Get("/portfolio", s.GetPortfolio)
	r.Get("/portfolio/transactions", s.ListTransactions)
	r.Get("/portfolio/holds", s.ListHolds)
}

// --- Request/Response types ---

// TransactionRequest is the JSON body for a buy or sell.
type TransactionRequest struct {
	Shares decimal.Decimal `json:"shares"`
}

// TransactionResponse is returned when a transaction commits.
type TransactionResponse struct {
	Status      string                  `json:"status"`
	Transaction model.TransactionRecord `json:"transaction"`
	Balance     decimal.Decimal         `json:"balance"`
}

// --- HTTP Handlers ---

// SubmitTransaction handles POST /api/v1/players/{gameName}/{tagLine}/{transactionType}
func (s *Service) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h, err := handle.FromParts(chi.URLParam(r, "gameName"), chi.URLParam(r, "tagLine"))
	if err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindInputInvalid, err, "invalid player handle"))
		return
	}
	typ := model.TradeType(strings.ToLower(chi.URLParam(r, "transactionType")))
	if !typ.Valid() {
		s.writeError(w, apperr.New(apperr.KindInputInvalid, "transaction type must be buy or sell"))
		return
	}

	var req TransactionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindInputInvalid, err, "invalid request body"))
		return
	}

	userID, membershipID, err := s.caller(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.engine.Execute(ctx, Request{
		MembershipID: membershipID,
		UserID:       userID,
		Player:       h,
		Type:         typ,
		Shares:       req.Shares,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.announce(ctx, userID, membershipID, res)

	writeJSON(w, http.StatusOK, TransactionResponse{
		Status:      "ok",
		Transaction: res.Record,
		Balance:     res.Balance,
	})
}

// GetPrice handles GET /api/v1/players/{gameName}/{tagLine}/price
func (s *Service) GetPrice(w http.ResponseWriter, r *http.Request) {
	h, err := handle.FromParts(chi.URLParam(r, "gameName"), chi.URLParam(r, "tagLine"))
	if err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindInputInvalid, err, "invalid player handle"))
		return
	}
	q, err := s.engine.Quote(r.Context(), h)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// GetPortfolio handles GET /api/v1/portfolio
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	_, membershipID, err := s.caller(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	view, err := s.engine.Portfolio(r.Context(), membershipID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListTransactions handles GET /api/v1/portfolio/transactions
func (s *Service) ListTransactions(w http.ResponseWriter, r *http.Request) {
	_, membershipID, err := s.caller(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	records, err := s.engine.Transactions(r.Context(), membershipID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// ListHolds handles GET /api/v1/portfolio/holds
func (s *Service) ListHolds(w http.ResponseWriter, r *http.Request) {
	_, membershipID, err := s.caller(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	active, err := s.engine.ActiveHolds(r.Context(), membershipID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, active)
}

// caller resolves the authenticated user and their current membership.
func (s *Service) caller(ctx context.Context) (userID, membershipID string, err error) {
	claims, ok := identity.FromContext(ctx)
	if !ok || claims.UserID() == "" {
		return "", "", apperr.New(apperr.KindInputInvalid, "missing caller identity")
	}
	membershipID, err = s.leagues.CurrentMembership(ctx, claims.UserID())
	if errors.Is(err, directory.ErrNoMembership) {
		return "", "", apperr.Wrap(apperr.KindNotFound, err, "user not associated with current league")
	}
	if err != nil {
		return "", "", apperr.Internal(err, "resolve membership")
	}
	return claims.UserID(), membershipID, nil
}

// announce publishes a committed transaction. Failures are logged; the
// transaction itself stays committed.
func (s *Service) announce(ctx context.Context, userID, membershipID string, res *Result) {
	evt := events.TransactionExecuted{
		Type:         events.TypeTransactionExecuted,
		ID:           uuid.New().String(),
		MembershipID: membershipID,
		UserID:       userID,
		PortfolioID:  res.Record.PortfolioID,
		Player:       res.Player.Key(),
		GameName:     res.Player.GameName,
		TagLine:      res.Player.TagLine,
		TradeType:    res.Record.Type,
		Shares:       res.Record.Shares,
		Price:        res.Record.Price,
		Balance:      res.Balance,
		Timestamp:    res.Record.Timestamp,
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, evt); err != nil {
		metrics.EventPublishFailures.Inc()
		s.log.Warn("publish transaction event failed",
			zap.String("transaction", res.Record.ID),
			zap.Error(err),
		)
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:      events.TypeTransactionExecuted,
			Player:    res.Player.Key(),
			GameName:  res.Player.GameName,
			TagLine:   res.Player.TagLine,
			TradeType: string(res.Record.Type),
			Shares:    res.Record.Shares.String(),
			Price:     res.Record.Price.String(),
			Timestamp: res.Record.Timestamp,
		})
	}
}

// writeError writes the failure envelope. Internal causes never reach the caller.
func (s *Service) writeError(w http.ResponseWriter, err error) {
	ae := apperr.As(err)
	if ae.Kind == apperr.KindInternal {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, ae.Kind.Status(), map[string]string{
		"error":   ae.Kind.Code(),
		"message": ae.PublicMessage(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
