package wallet

import (
	"context"
	"errors"
	"log/slog"

	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/session"
)

// ErrInvalidAmount rejects top-up amounts outside the offered presets.
var ErrInvalidAmount = errors.New("unsupported top-up amount")

// Presets are the credit packages offered on the account page, in cents.
var Presets = []int64{2_500, 5_000, 10_000, 20_000}

// API is the slice of the unlock backend client the wallet projection needs.
type API interface {
	Wallet(ctx context.Context, token string) (backend.WalletStatement, error)
	StripeTopUp(ctx context.Context, token string, amountCents int64) (string, error)
}

// Service projects the caller's wallet out of the backend. The wallet is
// read-only here: balances change only through completed external payments.
type Service struct {
	api    API
	logger *slog.Logger
}

// NewService builds the wallet projection service.
func NewService(api API, logger *slog.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// Statement fetches the credit balance and recent transactions. A failed or
// malformed fetch degrades to an empty statement so the account page still
// renders.
func (s *Service) Statement(ctx context.Context, sess session.Session) backend.WalletStatement {
	stmt, err := s.api.Wallet(ctx, sess.Token)
	if err != nil {
		s.logger.Warn("wallet fetch failed", "session_id", sess.ID, "error", err)
		return backend.WalletStatement{}
	}
	if stmt.Transactions == nil {
		stmt.Transactions = []backend.Transaction{}
	}
	return stmt
}

// TopUp creates a hosted checkout session for one of the preset amounts and
// returns the URL the browser should navigate to.
func (s *Service) TopUp(ctx context.Context, sess session.Session, amountCents int64) (string, error) {
	if !isPreset(amountCents) {
		return "", ErrInvalidAmount
	}
	return s.api.StripeTopUp(ctx, sess.Token, amountCents)
}

func isPreset(amountCents int64) bool {
	for _, p := range Presets {
		if p == amountCents {
			return true
		}
	}
	return false
}
