package repository

import (
	"context"
	"sync"
	"time"

	"phonemarket-bot/internal/model"
	"phonemarket-bot/pkg/uid"
)

// MemoryPurchaseLog keeps the most recent purchases in a fixed-size ring.
// It is used when no MongoDB URI is configured.
type MemoryPurchaseLog struct {
	mu      sync.RWMutex
	records []model.PurchaseRecord
	next    int
	full    bool
	total   int64
}

// NewMemoryPurchaseLog creates a log retaining up to capacity records.
func NewMemoryPurchaseLog(capacity int) *MemoryPurchaseLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryPurchaseLog{records: make([]model.PurchaseRecord, capacity)}
}

// InsertPurchase appends a record, overwriting the oldest once the ring is full.
func (l *MemoryPurchaseLog) InsertPurchase(_ context.Context, record *model.PurchaseRecord) error {
	if record.ID == "" {
		record.ID = uid.NewOrdered()
	}
	if record.PurchasedAt.IsZero() {
		record.PurchasedAt = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[l.next] = *record
	l.next = (l.next + 1) % len(l.records)
	if l.next == 0 {
		l.full = true
	}
	l.total++
	return nil
}

// ListPurchases returns retained records newest first. The total counts every
// insert, including records already evicted from the ring.
func (l *MemoryPurchaseLog) ListPurchases(_ context.Context, limit, offset int) ([]model.PurchaseRecord, int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	size := l.next
	if l.full {
		size = len(l.records)
	}

	if offset < 0 {
		offset = 0
	}
	out := []model.PurchaseRecord{}
	for i := offset; i < size && (limit <= 0 || len(out) < limit); i++ {
		idx := (l.next - 1 - i + len(l.records)) % len(l.records)
		out = append(out, l.records[idx])
	}
	return out, l.total, nil
}

// Close is a no-op.
func (l *MemoryPurchaseLog) Close() error { return nil }

var _ PurchaseLogRepository = (*MemoryPurchaseLog)(nil)
