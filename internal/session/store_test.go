package session

import (
	"strings"
	"testing"

	"github.com/eddyvy/enscli-ai-manager/internal/llm"
)

func TestGetCreatesAndReuses(t *testing.T) {
	s := NewStore(0)

	a := s.Get("alpha")
	if a == nil {
		t.Fatal("Get returned nil memory")
	}
	if s.Get("alpha") != a {
		t.Error("same id should return the same memory")
	}
	if s.Get("beta") == a {
		t.Error("distinct ids should not share memory")
	}
}

func TestEmptyIDIsStableSession(t *testing.T) {
	s := NewStore(0)

	m := s.Get("")
	m.Append(llm.Message{Role: llm.RoleUser, Content: "hello"})

	if got := len(s.Get("").History()); got != 1 {
		t.Errorf("empty-id session lost its history: len = %d", got)
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := NewStore(0)
	m := s.Get("s")

	m.Append(llm.Message{Role: llm.RoleUser, Content: "first"})
	m.Append(llm.Message{Role: llm.RoleAssistant, Content: "second"})
	m.Append(llm.Message{Role: llm.RoleUser, Content: "third"})

	h := m.History()
	if len(h) != 3 {
		t.Fatalf("history len = %d, want 3", len(h))
	}
	for i, want := range []string{"first", "second", "third"} {
		if h[i].Content != want {
			t.Errorf("history[%d] = %q, want %q", i, h[i].Content, want)
		}
	}
}

func TestEvictionIsOldestFirstAndWholeMessage(t *testing.T) {
	// Budget of 10 tokens; each 10-rune message estimates to 5 tokens.
	s := NewStore(10)
	m := s.Get("s")

	m.Append(llm.Message{Role: llm.RoleUser, Content: strings.Repeat("a", 10)})
	m.Append(llm.Message{Role: llm.RoleAssistant, Content: strings.Repeat("b", 10)})
	m.Append(llm.Message{Role: llm.RoleUser, Content: strings.Repeat("c", 10)})

	h := m.History()
	if len(h) != 2 {
		t.Fatalf("history len = %d, want 2", len(h))
	}
	if h[0].Content[0] != 'b' || h[1].Content[0] != 'c' {
		t.Errorf("oldest message should have been evicted, got %q then %q", h[0].Content, h[1].Content)
	}
	if m.Tokens() > 10 {
		t.Errorf("tokens = %d, exceeds budget", m.Tokens())
	}
}

func TestOversizedMessageDrainsBuffer(t *testing.T) {
	s := NewStore(10)
	m := s.Get("s")

	m.Append(llm.Message{Role: llm.RoleUser, Content: "short msg"})
	m.Append(llm.Message{Role: llm.RoleUser, Content: strings.Repeat("x", 100)})

	if got := len(m.History()); got != 0 {
		t.Errorf("a message over budget should drain the buffer, len = %d", got)
	}
	if m.Tokens() != 0 {
		t.Errorf("tokens = %d, want 0", m.Tokens())
	}
}

func TestBudgetNeverExceeded(t *testing.T) {
	s := NewStore(50)
	m := s.Get("s")

	for i := 0; i < 40; i++ {
		m.Append(llm.Message{Role: llm.RoleUser, Content: strings.Repeat("z", 3+i%17)})
		if m.Tokens() > 50 {
			t.Fatalf("after append %d: tokens = %d, exceeds budget", i, m.Tokens())
		}
	}
}

func TestHistoryIsACopy(t *testing.T) {
	s := NewStore(0)
	m := s.Get("s")
	m.Append(llm.Message{Role: llm.RoleUser, Content: "original"})

	h := m.History()
	h[0].Content = "mutated"

	if m.History()[0].Content != "original" {
		t.Error("mutating the snapshot changed stored history")
	}
}
