package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alyahmed89/overwatch/directive"
	"github.com/alyahmed89/overwatch/reviewllm"
)

// SessionState represents the current lifecycle state of a session.
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateReviewing SessionState = "reviewing"
	StateStopped   SessionState = "stopped"
	StateClosed    SessionState = "closed"
)

// Action is the outcome of a review.
type Action string

const (
	ActionContinue Action = "continue"
	ActionStop     Action = "stop"
)

// AgentEvent is one observable action taken by the supervised agent, in the
// shape OpenHands pushes to the worker.
type AgentEvent struct {
	Type     string                 `json:"type"`
	Content  string                 `json:"content"`
	Source   string                 `json:"source,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Verdict is the session's judgment of one agent event.
type Verdict struct {
	Action       Action              `json:"action"`
	Directive    directive.Directive `json:"directive"`
	ReviewerText string              `json:"reviewer_text"`
}

// Review is one completed review in the session history.
type Review struct {
	Event     AgentEvent `json:"event"`
	Verdict   Verdict    `json:"verdict"`
	Timestamp time.Time  `json:"timestamp"`
}

// Config holds configuration for a session.
type Config struct {
	Provider    string   `json:"provider,omitempty"` // empty = client default
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens"`
	MaxHistory  int      `json:"max_history"` // reviews retained; 0 = unlimited
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		MaxTokens:  1024,
		MaxHistory: 200,
	}
}

// ErrSessionStopped is returned by Review after a stop directive has latched
// the session, until the host acknowledges it.
var ErrSessionStopped = errors.New("monitor: session is stopped pending acknowledgment")

// ErrSessionClosed is returned by Review on a closed session.
var ErrSessionClosed = errors.New("monitor: session is closed")

// Session supervises one coding-agent conversation. It is safe for
// concurrent use, though reviews are serialized by design: the verdict for
// one event should be known before the next is judged.
type Session struct {
	id             string
	conversationID string
	task           string
	rules          string
	client         *reviewllm.Client
	config         Config
	emitter        *EventEmitter
	history        []Review
	state          SessionState
	mu             sync.Mutex
}

// NewSession creates a session supervising the given conversation.
func NewSession(client *reviewllm.Client, conversationID, task, rules string, config *Config) *Session {
	sessionID := uuid.New().String()

	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}

	s := &Session{
		id:             sessionID,
		conversationID: conversationID,
		task:           task,
		rules:          rules,
		client:         client,
		config:         cfg,
		emitter:        NewEventEmitter(sessionID, 256),
		state:          StateIdle,
	}

	s.emitter.Emit(EventSessionStart, map[string]interface{}{
		"conversation_id": conversationID,
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ConversationID returns the supervised conversation's identifier.
func (s *Session) ConversationID() string { return s.conversationID }

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the completed reviews.
func (s *Session) History() []Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := make([]Review, len(s.history))
	copy(h, s.history)
	return h
}

// Events returns the event channel for the host application.
func (s *Session) Events() <-chan SessionEvent {
	return s.emitter.Events()
}

// Acknowledge clears the stopped latch so reviewing can resume. It is a
// no-op unless the session is stopped.
func (s *Session) Acknowledge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		s.state = StateIdle
	}
}

// Close terminates the session and closes its event channel.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.mu.Unlock()

	s.emitter.Emit(EventSessionEnd, map[string]interface{}{
		"state": string(StateClosed),
	})
	s.emitter.Close()
}

// Review judges one agent event. The event is rendered into a prompt, sent
// to the reviewer model, and the reply is scanned for a stop directive. A
// stop verdict latches the session into StateStopped; a malformed directive
// in the reply is returned as an error, never treated as a continue.
func (s *Session) Review(ctx context.Context, ev AgentEvent) (Verdict, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return Verdict{}, ErrSessionClosed
	case StateStopped:
		s.mu.Unlock()
		return Verdict{}, ErrSessionStopped
	case StateReviewing:
		s.mu.Unlock()
		return Verdict{}, fmt.Errorf("monitor: a review is already in progress")
	}
	s.state = StateReviewing
	task, rules, cfg := s.task, s.rules, s.config
	s.mu.Unlock()

	s.emitter.Emit(EventAgentEvent, map[string]interface{}{
		"type":   ev.Type,
		"source": ev.Source,
	})
	s.emitter.Emit(EventReviewStart, nil)

	resp, err := s.client.Complete(ctx, reviewllm.Request{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Messages: []reviewllm.Message{
			reviewllm.SystemMessage(BuildSystemPrompt(task, rules)),
			reviewllm.UserMessage(FormatEvent(ev)),
		},
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		s.setState(StateIdle)
		s.emitter.Emit(EventError, map[string]interface{}{
			"error": err.Error(),
		})
		return Verdict{}, fmt.Errorf("monitor: reviewer completion failed: %w", err)
	}

	d, err := directive.Scan(resp.Content)
	if err != nil {
		// The reviewer intended a stop but the directive is unusable.
		// Surface it; the host must decide, not this loop.
		s.setState(StateIdle)
		s.emitter.Emit(EventMalformedDirective, map[string]interface{}{
			"reviewer_text": resp.Content,
			"error":         err.Error(),
		})
		return Verdict{}, fmt.Errorf("monitor: reviewer reply carries an unusable stop directive: %w", err)
	}

	verdict := Verdict{
		Action:       ActionContinue,
		Directive:    d,
		ReviewerText: resp.Content,
	}
	if d.Present {
		verdict.Action = ActionStop
	}

	s.mu.Lock()
	s.history = append(s.history, Review{Event: ev, Verdict: verdict, Timestamp: time.Now()})
	if cfg.MaxHistory > 0 && len(s.history) > cfg.MaxHistory {
		s.history = s.history[len(s.history)-cfg.MaxHistory:]
	}
	if d.Present {
		s.state = StateStopped
	} else {
		s.state = StateIdle
	}
	s.mu.Unlock()

	if d.Present {
		s.emitter.Emit(EventStopDirective, map[string]interface{}{
			"context": d.Context,
			"message": d.Message,
		})
	}
	s.emitter.Emit(EventReviewEnd, map[string]interface{}{
		"action": string(verdict.Action),
	})

	return verdict, nil
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		s.state = state
	}
}
