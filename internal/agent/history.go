package agent

import "sync"

// History is the append-only conversation log shared by every dispatch.
// Entries are never edited or removed; prompts read only the recent window.
type History struct {
	mu      sync.Mutex
	entries []string
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(entries ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entries...)
}

// Window returns a copy of the last n entries in their original order.
func (h *History) Window(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 {
		return nil
	}
	start := len(h.entries) - n
	if start < 0 {
		start = 0
	}
	return append([]string(nil), h.entries[start:]...)
}

func (h *History) Snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
