package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendText(t *testing.T) {
	t.Parallel()

	var got sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		fmt.Fprint(w, `{"status": "sent"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := client.SendText(context.Background(), "212600000001", "your order shipped"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got.Phone != "212600000001" || got.Message != "your order shipped" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestSendTextRejectsBlankInput(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{URL: "http://localhost:3000"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := client.SendText(context.Background(), "  ", "hello"); err == nil {
		t.Error("blank phone must be rejected")
	}
	if err := client.SendText(context.Background(), "212600000001", "  "); err == nil {
		t.Error("blank message must be rejected")
	}
}

func TestSendTextBridgeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "whatsapp session disconnected", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	err = client.SendText(context.Background(), "212600000001", "hello")
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"connected": true}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	connected, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !connected {
		t.Error("expected connected=true")
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "  "}); err == nil {
		t.Error("blank url must be rejected")
	}
	if _, err := NewClient(Config{URL: "::bad::"}); err == nil {
		t.Error("malformed url must be rejected")
	}
}
