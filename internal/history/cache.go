package history

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/calculab/calcu/pkg/domain"
)

// Store is the remote usage log the cache reconciles against.
type Store interface {
	History(ctx context.Context, accessToken string, userID uuid.UUID) ([]domain.UsageRecord, error)
	Insert(ctx context.Context, accessToken string, userID uuid.UUID, input, result float64) error
}

// Cache holds the in-memory ordered record sequence for the active session.
// It is a read-through cache over the remote store: Load replaces the whole
// sequence, Prepend applies one optimistic head insert, and nothing else
// ever mutates it. A discrepancy after a failed write is resolved only by
// a later Load.
//
// The cache is owned by one session; the host discards it on sign-out and
// builds a fresh one on sign-in.
type Cache struct {
	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	records []domain.UsageRecord
}

// NewCache creates an empty cache over the given store.
func NewCache(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// Load replaces the cache contents with the store's records for userID,
// newest first. A fetch failure degrades to empty: it is logged, never
// surfaced, so the user is not blocked by a failed read.
func (c *Cache) Load(ctx context.Context, accessToken string, userID uuid.UUID) []domain.UsageRecord {
	records, err := c.store.History(ctx, accessToken, userID)
	if err != nil {
		c.logger.Warn("history load failed, starting empty", "user_id", userID, "error", err)
		records = nil
	}

	c.mu.Lock()
	c.records = records
	c.mu.Unlock()
	return c.Records()
}

// Prepend inserts rec at the head of the sequence before any remote
// confirmation. Overlapping in-flight calculations each prepend
// independently; order reflects local submission time.
func (c *Cache) Prepend(rec domain.UsageRecord) {
	c.mu.Lock()
	c.records = append([]domain.UsageRecord{rec}, c.records...)
	c.mu.Unlock()
}

// Persist appends one row to the remote store. Unlike Load, a failure here
// propagates: a failed write risks silent data loss and must be surfaced.
func (c *Cache) Persist(ctx context.Context, accessToken string, userID uuid.UUID, input, result float64) error {
	return c.store.Insert(ctx, accessToken, userID, input, result)
}

// Records returns a copy of the current sequence, newest first.
func (c *Cache) Records() []domain.UsageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.UsageRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
