// Package convo keeps in-memory conversations keyed by (tenant, customer
// phone), with lazy TTL expiry and per-key locks.
package convo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tidybook/tidybook/internal/domain"
	"github.com/tidybook/tidybook/internal/logging"
)

// DefaultTTL is the idle duration after which a cached conversation is
// treated as expired.
const DefaultTTL = 30 * time.Minute

// Directory is the external persistence boundary consulted when a
// conversation is first created. It is the only place the store calls
// outside itself.
type Directory interface {
	// FindTenant returns the tenant's snapshot including services and
	// opening hours, or an error when the tenant does not exist.
	FindTenant(ctx context.Context, tenantID string) (*domain.TenantSnapshot, error)

	// FindOrCreateCustomer resolves a customer by phone, creating one
	// if absent.
	FindOrCreateCustomer(ctx context.Context, phone, name string) (*domain.CustomerSnapshot, error)

	// EnsureLink guarantees a tenant-customer association exists.
	EnsureLink(ctx context.Context, tenantID, customerID string) error
}

// Store holds live conversations. Reads and writes of the key map are
// internally synchronized; mutation of one conversation's contents must
// be serialized by the caller via LockKey so concurrent messages for the
// same (tenant, phone) pair cannot interleave history.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	dir Directory
	ttl time.Duration
	now func() time.Time
	log *logging.Logger
}

// entry pairs a conversation with its per-key lock. The entry survives
// Clear so the lock identity is stable for a given key.
type entry struct {
	mu   sync.Mutex
	conv *domain.Conversation
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the store's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a conversation store. A non-positive ttl falls back
// to DefaultTTL.
func NewStore(dir Directory, ttl time.Duration, log *logging.Logger, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		entries: make(map[string]*entry),
		dir:     dir,
		ttl:     ttl,
		now:     time.Now,
		log:     log.Sub("convo"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func convKey(tenantID, phone string) string {
	return tenantID + ":" + phone
}

// entryFor returns the entry for a key, creating it if needed.
func (s *Store) entryFor(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// LockKey acquires the per-key lock for (tenantID, phone) and returns
// the unlock function. Holders of different keys proceed in parallel;
// holders of the same key are strictly ordered.
func (s *Store) LockKey(tenantID, phone string) func() {
	e := s.entryFor(convKey(tenantID, phone))
	e.mu.Lock()
	return e.mu.Unlock
}

// GetOrCreate returns the live conversation for (tenantID, phone),
// building a new one when none exists or the cached one has been idle
// past the TTL. Building consults the directory for the tenant snapshot
// and the customer record.
func (s *Store) GetOrCreate(ctx context.Context, tenantID, phone, name string) (*domain.Conversation, error) {
	e := s.entryFor(convKey(tenantID, phone))

	if e.conv != nil && s.now().Sub(e.conv.UpdatedAt) <= s.ttl {
		return e.conv, nil
	}
	if e.conv != nil {
		s.log.Debug().
			Str("conversationId", e.conv.ID).
			Str("tenantId", tenantID).
			Msg("conversation expired, rebuilding")
	}

	tenant, err := s.dir.FindTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("resolving tenant %s: %w", tenantID, err)
	}
	customer, err := s.dir.FindOrCreateCustomer(ctx, phone, name)
	if err != nil {
		return nil, fmt.Errorf("resolving customer: %w", err)
	}
	if err := s.dir.EnsureLink(ctx, tenant.ID, customer.ID); err != nil {
		return nil, fmt.Errorf("linking customer to tenant: %w", err)
	}

	now := s.now()
	e.conv = &domain.Conversation{
		ID:        uuid.New().String(),
		Tenant:    *tenant,
		Customer:  *customer,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.log.Info().
		Str("conversationId", e.conv.ID).
		Str("tenantId", tenant.ID).
		Str("customerId", customer.ID).
		Msg("conversation created")
	return e.conv, nil
}

// Append adds a message to the conversation and refreshes its
// updated-at timestamp.
func (s *Store) Append(conv *domain.Conversation, msg domain.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	conv.Messages = append(conv.Messages, msg)
	if now := s.now(); now.After(conv.UpdatedAt) {
		conv.UpdatedAt = now
	}
}

// Recent returns the last limit messages, oldest first. A non-positive
// limit returns the full history.
func (s *Store) Recent(conv *domain.Conversation, limit int) []domain.Message {
	msgs := conv.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Clear drops the live conversation for (tenantID, phone). The next
// GetOrCreate builds a fresh one.
func (s *Store) Clear(tenantID, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[convKey(tenantID, phone)]; ok {
		e.conv = nil
	}
}
