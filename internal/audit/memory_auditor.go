package audit

import (
	"sync"

	"github.com/larsfn/minterra/internal/core"
)

const defaultCapacity = 1024

// MemoryAuditor keeps the most recent entries in memory. It backs the admin
// listing endpoint and tests.
type MemoryAuditor struct {
	mu      sync.Mutex
	entries []core.AuditEntry
	cap     int
}

func NewMemoryAuditor() *MemoryAuditor {
	return &MemoryAuditor{cap: defaultCapacity}
}

func (m *MemoryAuditor) Log(entry core.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	if len(m.entries) > m.cap {
		m.entries = m.entries[len(m.entries)-m.cap:]
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryAuditor) Recent(limit int) ([]core.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]core.AuditEntry, 0, limit)
	for i := len(m.entries) - 1; i >= len(m.entries)-limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *MemoryAuditor) Close() error {
	return nil
}
