package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, 5*time.Second), srv
}

func TestLoginSuccess(t *testing.T) {
	var gotBody map[string]string
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"token": "t1",
			"user":  map[string]string{"email": "me@example.com"},
		})
	}))
	defer srv.Close()

	result, err := client.Login(context.Background(), "me@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token != "t1" || result.User.Email != "me@example.com" {
		t.Fatalf("unexpected result %+v", result)
	}
	if gotBody["email"] != "me@example.com" || gotBody["password"] != "secret" {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
}

func TestLoginErrorBody(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	}))
	defer srv.Close()

	_, err := client.Login(context.Background(), "me@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "invalid credentials" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestLoginMissingToken(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]string{"email": "x"}})
	}))
	defer srv.Close()

	if _, err := client.Login(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestMessagesCursor(t *testing.T) {
	var gotAfter, gotAuth string
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAfter = r.URL.Query().Get("after")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"messages": []map[string]any{
			{"id": 7, "sender_type": "support", "message": "Hi"},
		}})
	}))
	defer srv.Close()

	msgs, err := client.Messages(context.Background(), "t1", 3)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if gotAfter != "3" {
		t.Fatalf("expected after=3, got %q", gotAfter)
	}
	if gotAuth != "Bearer t1" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if len(msgs) != 1 || msgs[0].ID != 7 || msgs[0].Body != "Hi" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestMessagesNoCursorParam(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Fatalf("expected no query, got %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{"messages": []any{}})
	}))
	defer srv.Close()

	if _, err := client.Messages(context.Background(), "t1", 0); err != nil {
		t.Fatalf("messages: %v", err)
	}
}

func TestStripeTopUpAmountPassthrough(t *testing.T) {
	var gotBody map[string]int64
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"url": "https://checkout.example/cs_123"})
	}))
	defer srv.Close()

	url, err := client.StripeTopUp(context.Background(), "t1", 2500)
	if err != nil {
		t.Fatalf("topup: %v", err)
	}
	if gotBody["amountCents"] != 2500 {
		t.Fatalf("expected amountCents 2500, got %d", gotBody["amountCents"])
	}
	if url != "https://checkout.example/cs_123" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestCreateOrder(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Fatal("guest order must not carry auth")
		}
		json.NewEncoder(w).Encode(map[string]string{"checkoutUrl": "https://checkout.example/cs_9"})
	}))
	defer srv.Close()

	url, err := client.CreateOrder(context.Background(), OrderRequest{
		Email: "me@example.com", Brand: "Apple", Model: "iPhone 15", IMEI: "356938035643809", PriceCents: 2900,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if url != "https://checkout.example/cs_9" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestTrackOrderEscapesParams(t *testing.T) {
	var gotPath, gotEmail string
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotEmail = r.URL.Query().Get("email")
		json.NewEncoder(w).Encode(map[string]any{"order": map[string]any{
			"order_number": "BR123", "status": "processing",
		}})
	}))
	defer srv.Close()

	order, err := client.TrackOrder(context.Background(), "BR123", "a+b@example.com")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if gotPath != "/api/orders/BR123" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotEmail != "a+b@example.com" {
		t.Fatalf("unexpected email %q", gotEmail)
	}
	if order.Status != "processing" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestMalformedSuccessBodyDefaults(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	stmt, err := client.Wallet(context.Background(), "t1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if stmt.CreditBalanceCents != 0 || stmt.Transactions != nil {
		t.Fatalf("expected zero statement, got %+v", stmt)
	}
}

func TestSendMessageGarbledEchoFails(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := client.SendMessage(context.Background(), "t1", "Hello")
	if err == nil {
		t.Fatal("expected error for echo without a message id")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestPing(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound) // up, just no route
	}))
	defer srv.Close()

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	down, downSrv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer downSrv.Close()

	if err := down.Ping(context.Background()); err == nil {
		t.Fatal("expected error for 5xx backend")
	}
}
