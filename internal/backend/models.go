package backend

import "time"

// User is the profile object the unlock API returns at login and registration.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// AuthResult bundles the bearer token with the authenticated profile.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Order is a read-only projection of an unlock order. The front end never
// mutates orders; status transitions happen backend-side
// (pending_payment -> processing -> unlocked -> completed).
type Order struct {
	ID          int64     `json:"id"`
	OrderNumber string    `json:"order_number"`
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	IMEI        string    `json:"imei"`
	PriceCents  int64     `json:"price_cents"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transaction is one row of wallet activity.
type Transaction struct {
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}

// WalletStatement carries the credit balance and recent activity.
type WalletStatement struct {
	CreditBalanceCents int64         `json:"credit_balance_cents"`
	Transactions       []Transaction `json:"transactions"`
}

// Message is one support chat message. Messages are immutable once created;
// ordering follows the server-assigned ID sequence.
type Message struct {
	ID         int64     `json:"id"`
	SenderType string    `json:"sender_type"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sender types as the unlock API reports them.
const (
	SenderUser    = "user"
	SenderSupport = "support"
)

// OrderRequest is the payload for creating a new unlock order.
type OrderRequest struct {
	Email      string `json:"email"`
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	IMEI       string `json:"imei"`
	PriceCents int64  `json:"price_cents"`
}
