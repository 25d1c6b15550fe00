package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// APIError is a non-2xx response from the unlock API. The body's "error"
// field, when present, becomes the message shown to the user.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("unlock api responded with status %d", e.Status)
}

// Client is a typed HTTP client for the external unlock API. It owns no
// state beyond the base URL; every authenticated call takes the caller's
// bearer token explicitly.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Ping checks that the unlock API answers at all. Any response below 500
// counts as reachable; auth failures still prove the service is up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call unlock api: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &out); err != nil {
		return AuthResult{}, err
	}
	if out.Token == "" {
		return AuthResult{}, &APIError{Status: http.StatusBadGateway, Message: "login response missing token"}
	}
	return out, nil
}

// Register creates an account and returns the same token + profile shape as Login.
func (c *Client) Register(ctx context.Context, name, email, phone, password string) (AuthResult, error) {
	body := map[string]string{"name": name, "email": email, "phone": phone, "password": password}
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", body, &out); err != nil {
		return AuthResult{}, err
	}
	if out.Token == "" {
		return AuthResult{}, &APIError{Status: http.StatusBadGateway, Message: "register response missing token"}
	}
	return out, nil
}

// MyOrders lists the caller's orders.
func (c *Client) MyOrders(ctx context.Context, token string) ([]Order, error) {
	var out struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me/orders", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// Wallet fetches the caller's credit balance and transaction history.
func (c *Client) Wallet(ctx context.Context, token string) (WalletStatement, error) {
	var out WalletStatement
	if err := c.do(ctx, http.MethodGet, "/api/wallet/me", token, nil, &out); err != nil {
		return WalletStatement{}, err
	}
	return out, nil
}

// StripeTopUp creates a hosted checkout session and returns its redirect URL.
func (c *Client) StripeTopUp(ctx context.Context, token string, amountCents int64) (string, error) {
	body := map[string]int64{"amountCents": amountCents}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/wallet/topup/stripe", token, body, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", &APIError{Status: http.StatusBadGateway, Message: "top-up response missing checkout url"}
	}
	return out.URL, nil
}

// Messages fetches the caller's conversation. afterID > 0 requests only
// messages with a higher server-assigned ID; backends that ignore the cursor
// simply return the full list and the merge on our side dedupes.
func (c *Client) Messages(ctx context.Context, token string, afterID int64) ([]Message, error) {
	path := "/api/chat/messages"
	if afterID > 0 {
		path += "?after=" + strconv.FormatInt(afterID, 10)
	}
	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendMessage posts one outbound message and returns the server-echoed copy.
func (c *Client) SendMessage(ctx context.Context, token, text string) (Message, error) {
	body := map[string]string{"message": text}
	var out struct {
		Message Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat/messages", token, body, &out); err != nil {
		return Message{}, err
	}
	// Unlike list fetches, a send must not degrade: an echo without a server
	// ID can never be deduped later, so treat it as a failed send.
	if out.Message.ID == 0 {
		return Message{}, &APIError{Status: http.StatusBadGateway, Message: "send response missing message"}
	}
	return out.Message, nil
}

// CreateOrder submits a new unlock order and returns the checkout redirect URL.
// No auth: guests order from the landing page.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	var out struct {
		CheckoutURL string `json:"checkoutUrl"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/orders", "", req, &out); err != nil {
		return "", err
	}
	if out.CheckoutURL == "" {
		return "", &APIError{Status: http.StatusBadGateway, Message: "order response missing checkout url"}
	}
	return out.CheckoutURL, nil
}

// TrackOrder looks up one order by number + email for the public tracking page.
func (c *Client) TrackOrder(ctx context.Context, orderNumber, email string) (Order, error) {
	path := "/api/orders/" + url.PathEscape(orderNumber) + "?email=" + url.QueryEscape(email)
	var out struct {
		Order Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return Order{}, err
	}
	return out.Order, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call unlock api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}

	// A malformed success body degrades to zero values rather than failing
	// the page: callers render empty lists / zero balances.
	if err := json.Unmarshal(raw, out); err != nil {
		return nil
	}
	return nil
}
