package openhands

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestCreateConversation(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/conversations" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", got)
		}

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Repository != "alyahmed89/eta" {
			t.Errorf("repository: got %q", req.Repository)
		}
		if req.InitialUserMessage == "" {
			t.Error("initial_user_msg missing")
		}

		json.NewEncoder(w).Encode(map[string]string{"conversation_id": "conv-123", "status": "STARTING"})
	}))

	conv, err := client.Create(context.Background(), CreateRequest{
		Repository:         "alyahmed89/eta",
		InitialUserMessage: "Create a simple web server with Node.js.",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if conv.ID != "conv-123" {
		t.Errorf("expected conv-123, got %q", conv.ID)
	}
	if conv.Status != StatusStarting {
		t.Errorf("expected STARTING, got %q", conv.Status)
	}
}

func TestCreateMissingConversationID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "STARTING"})
	}))

	if _, err := client.Create(context.Background(), CreateRequest{}); err == nil {
		t.Fatal("expected error when the response carries no conversation_id")
	}
}

func TestGetConversation(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations/conv-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"conversation_id": "conv-123", "status": "READY"})
	}))

	conv, err := client.Get(context.Background(), "conv-123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if conv.Status != StatusReady {
		t.Errorf("expected READY, got %q", conv.Status)
	}
}

func TestGetNonOKStatus(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such conversation", http.StatusNotFound)
	}))

	_, err := client.Get(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", apiErr.StatusCode)
	}
}

func TestWaitUntilReady(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "STARTING"
		if calls.Add(1) >= 3 {
			status = "READY"
		}
		json.NewEncoder(w).Encode(map[string]string{"conversation_id": "conv-123", "status": status})
	}))

	conv, err := client.WaitUntilReady(context.Background(), "conv-123", PollPolicy{
		Interval: 5 * time.Millisecond,
		MaxWait:  time.Second,
	})
	if err != nil {
		t.Fatalf("WaitUntilReady: %v", err)
	}
	if conv.Status != StatusReady {
		t.Errorf("expected READY, got %q", conv.Status)
	}
	if calls.Load() < 3 {
		t.Errorf("expected at least 3 polls, got %d", calls.Load())
	}
}

func TestWaitUntilReadyConversationError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"conversation_id": "conv-123", "status": "ERROR"})
	}))

	_, err := client.WaitUntilReady(context.Background(), "conv-123", PollPolicy{
		Interval: 5 * time.Millisecond,
		MaxWait:  time.Second,
	})
	var failed *ConversationFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected *ConversationFailedError, got %v", err)
	}
}

func TestWaitUntilReadyTimesOut(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"conversation_id": "conv-123", "status": "STARTING"})
	}))

	_, err := client.WaitUntilReady(context.Background(), "conv-123", PollPolicy{
		Interval: 5 * time.Millisecond,
		MaxWait:  30 * time.Millisecond,
	})
	var timeout *WaitTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected *WaitTimeoutError, got %v", err)
	}
	if timeout.ConversationID != "conv-123" {
		t.Errorf("timeout error carries wrong id: %q", timeout.ConversationID)
	}
}

func TestWaitUntilReadyCancelled(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"conversation_id": "conv-123", "status": "STARTING"})
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.WaitUntilReady(ctx, "conv-123", PollPolicy{
		Interval: 5 * time.Millisecond,
		MaxWait:  10 * time.Second,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
