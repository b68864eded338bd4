package razorpay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		user, _, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" {
			t.Errorf("expected basic auth with key id, got %q", user)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_abc","amount":49900,"currency":"INR","receipt":"rcpt_1","status":"created"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL})

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:   49900,
		Currency: "INR",
		Receipt:  "rcpt_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "order_abc" || order.Amount != 49900 {
		t.Fatalf("unexpected order: %#v", order)
	}
}

func TestCreateOrder_GatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	srv.Close() // refuse connections

	client := NewClient(Config{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL})

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR"})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestCreateOrder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(Config{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL})

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR"})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable for 5xx, got %v", err)
	}
}

func TestCreateOrder_InvalidRequest(t *testing.T) {
	client := NewClient(Config{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: "http://localhost:0"})

	if _, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 0, Currency: "INR"}); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100}); err == nil {
		t.Fatal("expected error for missing currency")
	}
}
