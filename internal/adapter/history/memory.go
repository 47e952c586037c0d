package history

import (
	"sync"
	"time"

	"github.com/semmidev/cloudvault/internal/domain"
)

// MemoryHistory keeps the ledger in process memory. It is lost on restart.
// Ids are assigned under the same lock as the append, so id order always
// matches insertion order.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
	lastID  int64
	now     func() time.Time
}

func NewMemory() *MemoryHistory {
	return &MemoryHistory{
		entries: []domain.HistoryEntry{},
		now:     time.Now,
	}
}

func (h *MemoryHistory) Record(op domain.Operation, filename string, size *int64) domain.HistoryEntry {
	entry := domain.HistoryEntry{
		Operation: op,
		Filename:  filename,
	}
	if size != nil {
		s := *size
		entry.Size = &s
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	entry.ID = h.lastID
	entry.Timestamp = h.now().UTC()
	h.entries = append(h.entries, entry)

	return entry
}

func (h *MemoryHistory) List() []domain.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// RemoveByIDs drops every entry whose id is in ids and returns how many
// entries remain.
func (h *MemoryHistory) RemoveByIDs(ids []int64) int {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(drop) == 0 {
		return len(h.entries)
	}

	kept := make([]domain.HistoryEntry, 0, len(h.entries))
	for _, e := range h.entries {
		if _, ok := drop[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	h.entries = kept

	return len(h.entries)
}
