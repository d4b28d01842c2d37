package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alyahmed89/overwatch/openhands"
	"github.com/alyahmed89/overwatch/reviewllm"
)

// scriptedAdapter returns canned reviewer replies in order.
type scriptedAdapter struct {
	replies []string
	calls   int
}

func (a *scriptedAdapter) Name() string { return "deepseek" }

func (a *scriptedAdapter) Complete(_ context.Context, req reviewllm.Request) (*reviewllm.Response, error) {
	idx := a.calls
	if idx >= len(a.replies) {
		idx = len(a.replies) - 1
	}
	a.calls++
	return &reviewllm.Response{Provider: "deepseek", Model: req.Model, Content: a.replies[idx]}, nil
}

func newTestServer(t *testing.T, adapter *scriptedAdapter, conversations *openhands.Client) *httptest.Server {
	t.Helper()
	client := reviewllm.NewClient(
		reviewllm.WithAdapter(adapter),
		reviewllm.WithRetryPolicy(reviewllm.RetryPolicy{MaxRetries: 0}),
	)
	srv, err := New(Options{ReviewClient: client, Conversations: conversations})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestStartAndForwardEvent(t *testing.T) {
	adapter := &scriptedAdapter{replies: []string{"Looks fine, continue."}}
	ts := newTestServer(t, adapter, nil)

	resp, body := postJSON(t, ts.URL+"/start", map[string]string{
		"conversation_id": "conv-123",
		"task":            "Build a web server.",
		"rules":           "Stop on insecure code.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/start: status %d: %v", resp.StatusCode, body)
	}
	if body["status"] != "monitoring" || body["conversation_id"] != "conv-123" {
		t.Errorf("unexpected /start response: %v", body)
	}

	resp, body = postJSON(t, ts.URL+"/events", map[string]interface{}{
		"conversation_id": "conv-123",
		"event": map[string]interface{}{
			"type":    "code_written",
			"content": "console.log('hi')",
			"source":  "agent",
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/events: status %d: %v", resp.StatusCode, body)
	}
	if body["action"] != "continue" {
		t.Errorf("expected continue verdict, got %v", body)
	}
}

func TestEventTriggersStopDirective(t *testing.T) {
	adapter := &scriptedAdapter{replies: []string{
		`*[STOP]* CONTEXT: "security risk" Remove the exec call.`,
	}}
	ts := newTestServer(t, adapter, nil)

	postJSON(t, ts.URL+"/start", map[string]string{
		"conversation_id": "conv-123",
		"task":            "Build a web server.",
	})

	resp, body := postJSON(t, ts.URL+"/events", map[string]interface{}{
		"conversation_id": "conv-123",
		"event":           map[string]interface{}{"type": "code_written", "content": "exec(...)"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/events: status %d: %v", resp.StatusCode, body)
	}
	if body["action"] != "stop" || body["context"] != "security risk" || body["message"] != "Remove the exec call." {
		t.Errorf("unexpected stop verdict: %v", body)
	}

	// The session is latched; the next event is refused.
	resp, _ = postJSON(t, ts.URL+"/events", map[string]interface{}{
		"conversation_id": "conv-123",
		"event":           map[string]interface{}{"type": "message", "content": "continuing"},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 after stop, got %d", resp.StatusCode)
	}
}

func TestEventForUnknownConversation(t *testing.T) {
	ts := newTestServer(t, &scriptedAdapter{replies: []string{"fine"}}, nil)

	resp, _ := postJSON(t, ts.URL+"/events", map[string]interface{}{
		"conversation_id": "nope",
		"event":           map[string]interface{}{"type": "message", "content": "hello"},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStartTwiceConflicts(t *testing.T) {
	ts := newTestServer(t, &scriptedAdapter{replies: []string{"fine"}}, nil)

	postJSON(t, ts.URL+"/start", map[string]string{"conversation_id": "conv-123", "task": "t"})
	resp, _ := postJSON(t, ts.URL+"/start", map[string]string{"conversation_id": "conv-123", "task": "t"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate /start, got %d", resp.StatusCode)
	}
}

func TestConcurrentStartsClaimConversationOnce(t *testing.T) {
	ts := newTestServer(t, &scriptedAdapter{replies: []string{"fine"}}, nil)

	payload, err := json.Marshal(map[string]string{"conversation_id": "conv-123", "task": "t"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	const n = 8
	statuses := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(ts.URL+"/start", "application/json", bytes.NewReader(payload))
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	ok, conflicts := 0, 0
	for status := range statuses {
		switch status {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflicts++
		default:
			t.Errorf("unexpected status %d", status)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Errorf("expected one claim and %d conflicts, got %d and %d", n-1, ok, conflicts)
	}
}

func TestMalformedDirectiveIsBadGateway(t *testing.T) {
	adapter := &scriptedAdapter{replies: []string{"*[STOP]* no context here"}}
	ts := newTestServer(t, adapter, nil)

	postJSON(t, ts.URL+"/start", map[string]string{"conversation_id": "conv-123", "task": "t"})
	resp, body := postJSON(t, ts.URL+"/events", map[string]interface{}{
		"conversation_id": "conv-123",
		"event":           map[string]interface{}{"type": "message", "content": "x"},
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502 for malformed directive, got %d: %v", resp.StatusCode, body)
	}
}

func TestStartCreatesConversationWhenMissing(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/conversations":
			json.NewEncoder(w).Encode(map[string]string{"conversation_id": "conv-new", "status": "STARTING"})
		case r.Method == http.MethodGet && r.URL.Path == "/conversations/conv-new":
			json.NewEncoder(w).Encode(map[string]string{"conversation_id": "conv-new", "status": "READY"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	conversations, err := openhands.New(openhands.Config{BaseURL: api.URL})
	if err != nil {
		t.Fatalf("openhands.New: %v", err)
	}

	ts := newTestServer(t, &scriptedAdapter{replies: []string{"fine"}}, conversations)

	resp, body := postJSON(t, ts.URL+"/start", map[string]string{
		"repository":   "alyahmed89/eta",
		"first_prompt": "Create a simple web server with Node.js.",
		"rules":        "Monitor for security issues.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/start: status %d: %v", resp.StatusCode, body)
	}
	if body["conversation_id"] != "conv-new" {
		t.Errorf("expected created conversation id, got %v", body)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &scriptedAdapter{replies: []string{"fine"}}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
