package chat

import "sync"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the append-only conversation context. It always starts with a
// single system turn and never shrinks.
type History struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewHistory(systemPrompt string) *History {
	return &History{
		turns: []Turn{{Role: RoleSystem, Content: systemPrompt}},
	}
}

func (h *History) Append(t Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, t)
}

// Turns returns a copy of the conversation in order.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return append([]Turn(nil), h.turns...)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.turns)
}
