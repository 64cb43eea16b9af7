package usage

import (
	"context"
	"sync"
)

// MemoryRecorder keeps the most recent records in a bounded ring buffer.
type MemoryRecorder struct {
	mu     sync.RWMutex
	buf    []Record
	next   int
	filled bool
}

// NewMemoryRecorder creates a memory recorder retaining up to maxRecords
// entries.
func NewMemoryRecorder(maxRecords int) *MemoryRecorder {
	if maxRecords <= 0 {
		maxRecords = 10000
	}
	return &MemoryRecorder{buf: make([]Record, maxRecords)}
}

// Record stores one entry, overwriting the oldest once the ring is full.
func (m *MemoryRecorder) Record(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf[m.next] = rec
	m.next++
	if m.next == len(m.buf) {
		m.next = 0
		m.filled = true
	}
	return nil
}

// Recent returns up to n records, newest first.
func (m *MemoryRecorder) Recent(ctx context.Context, n int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := m.next
	if m.filled {
		size = len(m.buf)
	}
	if n > size {
		n = size
	}

	out := make([]Record, 0, n)
	idx := m.next - 1
	for i := 0; i < n; i++ {
		if idx < 0 {
			idx = len(m.buf) - 1
		}
		out = append(out, m.buf[idx])
		idx--
	}
	return out, nil
}

// Close is a no-op for the memory recorder.
func (m *MemoryRecorder) Close() error { return nil }
