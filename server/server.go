// Package server exposes the supervisor over HTTP, mirroring the worker
// contract OpenHands pushes to: POST /start registers a conversation for
// supervision and POST /events forwards one agent event for review.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alyahmed89/overwatch/monitor"
	"github.com/alyahmed89/overwatch/openhands"
	"github.com/alyahmed89/overwatch/reviewllm"
)

// Server routes worker requests to supervision sessions.
type Server struct {
	reviewClient  *reviewllm.Client
	conversations *openhands.Client // nil when conversation creation is disabled
	monitorCfg    monitor.Config
	poll          openhands.PollPolicy
	store         *sessionStore
	logger        *zap.Logger
}

// Options configures a Server.
type Options struct {
	ReviewClient  *reviewllm.Client
	Conversations *openhands.Client // optional
	MonitorConfig *monitor.Config
	PollPolicy    *openhands.PollPolicy
	Logger        *zap.Logger
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.ReviewClient == nil {
		return nil, errors.New("server: review client required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := monitor.DefaultConfig()
	if opts.MonitorConfig != nil {
		cfg = *opts.MonitorConfig
	}
	poll := openhands.DefaultPollPolicy()
	if opts.PollPolicy != nil {
		poll = *opts.PollPolicy
	}

	return &Server{
		reviewClient:  opts.ReviewClient,
		conversations: opts.Conversations,
		monitorCfg:    cfg,
		poll:          poll,
		store:         newStore(),
		logger:        logger,
	}, nil
}

// sessionStore is a mutex-guarded map of conversation ID to session.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*monitor.Session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*monitor.Session)}
}

// setIfAbsent inserts the session unless the conversation is already
// monitored. Check and insert happen under one lock so concurrent /start
// calls cannot both claim the conversation.
func (s *sessionStore) setIfAbsent(id string, sess *monitor.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		return false
	}
	s.sessions[id] = sess
	return true
}

func (s *sessionStore) get(id string) (*monitor.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionStore) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.Close()
	}
}

// Routes returns the worker's HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/healthz", s.handleHealth)
	return s.logMiddleware(mux)
}

// Close shuts down all supervision sessions.
func (s *Server) Close() {
	s.store.closeAll()
}

// --- Handlers ---

type startReq struct {
	ConversationID string `json:"conversation_id"`
	Task           string `json:"task"`
	Rules          string `json:"rules"`
	Repository     string `json:"repository,omitempty"`
	FirstPrompt    string `json:"first_prompt,omitempty"`
}

type startResp struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversation_id"`
	SessionID      string `json:"session_id"`
}

type eventReq struct {
	ConversationID string             `json:"conversation_id"`
	Event          monitor.AgentEvent `json:"event"`
}

type verdictResp struct {
	Action       string `json:"action"`
	Context      string `json:"context,omitempty"`
	Message      string `json:"message,omitempty"`
	ReviewerText string `json:"reviewer_text"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req startReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	task := req.Task
	if task == "" {
		task = req.FirstPrompt
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		id, err := s.createConversation(r.Context(), req)
		if err != nil {
			s.logger.Warn("conversation creation failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		conversationID = id
	}

	sess := monitor.NewSession(s.reviewClient, conversationID, task, req.Rules, &s.monitorCfg)
	if !s.store.setIfAbsent(conversationID, sess) {
		sess.Close()
		writeError(w, http.StatusConflict, "conversation is already being monitored")
		return
	}
	s.logger.Info("monitoring started",
		zap.String("conversation_id", conversationID),
		zap.String("session_id", sess.ID()),
	)

	writeJSON(w, http.StatusOK, startResp{
		Status:         "monitoring",
		ConversationID: conversationID,
		SessionID:      sess.ID(),
	})
}

// createConversation provisions an OpenHands conversation for a /start
// request that names none, then waits for it to become ready.
func (s *Server) createConversation(ctx context.Context, req startReq) (string, error) {
	if s.conversations == nil {
		return "", errors.New("no conversation_id given and conversation creation is not configured")
	}
	prompt := req.FirstPrompt
	if prompt == "" {
		prompt = req.Task
	}

	conv, err := s.conversations.Create(ctx, openhands.CreateRequest{
		Repository:         req.Repository,
		InitialUserMessage: prompt,
	})
	if err != nil {
		return "", err
	}
	if _, err := s.conversations.WaitUntilReady(ctx, conv.ID, s.poll); err != nil {
		return "", err
	}
	return conv.ID, nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req eventReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	sess, ok := s.store.get(req.ConversationID)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation is not being monitored")
		return
	}

	verdict, err := sess.Review(r.Context(), req.Event)
	if err != nil {
		switch {
		case errors.Is(err, monitor.ErrSessionStopped):
			writeError(w, http.StatusConflict, "session is stopped pending acknowledgment")
		case errors.Is(err, monitor.ErrSessionClosed):
			writeError(w, http.StatusGone, "session is closed")
		default:
			s.logger.Warn("review failed",
				zap.String("conversation_id", req.ConversationID),
				zap.Error(err),
			)
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	if verdict.Action == monitor.ActionStop {
		s.logger.Info("stop directive issued",
			zap.String("conversation_id", req.ConversationID),
			zap.String("context", verdict.Directive.Context),
		)
	}

	writeJSON(w, http.StatusOK, verdictResp{
		Action:       string(verdict.Action),
		Context:      verdict.Directive.Context,
		Message:      verdict.Directive.Message,
		ReviewerText: verdict.ReviewerText,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
