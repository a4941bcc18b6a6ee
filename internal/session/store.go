// Package session holds per-session conversational memory for the process
// lifetime. Sessions are never persisted and never destroyed; long-running
// deployments with unbounded distinct session ids will grow this store
// without limit.
package session

import (
	"sync"
	"unicode/utf8"

	"github.com/eddyvy/enscli-ai-manager/internal/llm"
)

// DefaultTokenBudget is the moving history budget per session.
const DefaultTokenBudget = 4000

// Store is the single process-wide authority mapping session id to its
// bounded conversation buffer. The lookup map is guarded by one mutex, but
// each Memory serializes its own appends, so unrelated sessions never
// contend on message writes.
type Store struct {
	budget int

	mu       sync.Mutex
	sessions map[string]*Memory
}

// NewStore creates a Store whose memories carry the given token budget.
// A non-positive budget falls back to DefaultTokenBudget.
func NewStore(tokenBudget int) *Store {
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	return &Store{budget: tokenBudget, sessions: make(map[string]*Memory)}
}

// Get returns the memory for id, creating it if absent. The empty string is
// a valid id with its own stable identity.
func (s *Store) Get(id string) *Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[id]
	if !ok {
		m = &Memory{budget: s.budget}
		s.sessions[id] = m
	}
	return m
}

// Memory is one session's bounded conversation buffer. Messages are
// append-only and evicted whole from the oldest end when the cumulative
// token estimate exceeds the budget.
type Memory struct {
	mu     sync.Mutex
	budget int
	msgs   []llm.Message
	tokens int
}

// Append records a message, then evicts oldest-first until the retained
// sequence fits the budget again. A message is never split; if the newest
// message alone exceeds the budget the buffer drains entirely.
func (m *Memory) Append(msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.msgs = append(m.msgs, msg)
	m.tokens += estimateTokens(msg.Content)

	for m.tokens > m.budget && len(m.msgs) > 0 {
		m.tokens -= estimateTokens(m.msgs[0].Content)
		m.msgs = m.msgs[1:]
	}
}

// History returns a read-only snapshot in chronological order.
func (m *Memory) History() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Message, len(m.msgs))
	copy(out, m.msgs)
	return out
}

// Tokens returns the current token estimate of the retained sequence.
func (m *Memory) Tokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

// estimateTokens approximates the model token count of text. Rune count
// divided by two over-counts English (~4 chars/token) and under-counts CJK
// (~1.5 chars/token) slightly, which keeps the budget conservative for both.
func estimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 2
}
