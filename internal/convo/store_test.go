package convo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidybook/tidybook/internal/domain"
	"github.com/tidybook/tidybook/internal/logging"
)

type fakeDirectory struct {
	mu          sync.Mutex
	tenantCalls int
	links       map[string]int
	tenantErr   error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{links: make(map[string]int)}
}

func (d *fakeDirectory) FindTenant(ctx context.Context, tenantID string) (*domain.TenantSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tenantCalls++
	if d.tenantErr != nil {
		return nil, d.tenantErr
	}
	return &domain.TenantSnapshot{
		ID:   tenantID,
		Name: "Salon A",
		Services: []domain.ServiceInfo{
			{ID: "svc-haircut", Name: "Haircut", Price: 50, DurationMinutes: 30},
		},
	}, nil
}

func (d *fakeDirectory) FindOrCreateCustomer(ctx context.Context, phone, name string) (*domain.CustomerSnapshot, error) {
	return &domain.CustomerSnapshot{ID: "cust-" + phone, Phone: phone, Name: name}, nil
}

func (d *fakeDirectory) EnsureLink(ctx context.Context, tenantID, customerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.links[tenantID+":"+customerID]++
	return nil
}

func TestGetOrCreateReusesLiveConversation(t *testing.T) {
	dir := newFakeDirectory()
	s := NewStore(dir, DefaultTTL, logging.Silent())

	first, err := s.GetOrCreate(context.Background(), "salon-a", "+491701234567", "Ada")
	require.NoError(t, err)
	second, err := s.GetOrCreate(context.Background(), "salon-a", "+491701234567", "Ada")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, dir.tenantCalls)
}

func TestGetOrCreateExpiresAfterTTL(t *testing.T) {
	dir := newFakeDirectory()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	s := NewStore(dir, 30*time.Minute, logging.Silent(), WithClock(func() time.Time { return now }))

	first, err := s.GetOrCreate(context.Background(), "salon-a", "+491701234567", "")
	require.NoError(t, err)

	// Just inside the TTL the conversation survives.
	now = now.Add(30 * time.Minute)
	same, err := s.GetOrCreate(context.Background(), "salon-a", "+491701234567", "")
	require.NoError(t, err)
	assert.Same(t, first, same)

	// One tick past it a fresh conversation is built.
	now = now.Add(time.Nanosecond)
	fresh, err := s.GetOrCreate(context.Background(), "salon-a", "+491701234567", "")
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.Equal(t, 2, dir.tenantCalls)
}

func TestGetOrCreatePropagatesDirectoryError(t *testing.T) {
	dir := newFakeDirectory()
	dir.tenantErr = errors.New("tenant missing")
	s := NewStore(dir, 0, logging.Silent())

	_, err := s.GetOrCreate(context.Background(), "nope", "+49170", "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "tenant missing")
}

func TestAppendAdvancesUpdatedAt(t *testing.T) {
	dir := newFakeDirectory()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	s := NewStore(dir, 0, logging.Silent(), WithClock(func() time.Time { return now }))

	conv, err := s.GetOrCreate(context.Background(), "salon-a", "+49170", "")
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	s.Append(conv, domain.Message{Role: domain.RoleUser, Text: "hi"})

	require.Len(t, conv.Messages, 1)
	assert.Equal(t, now, conv.UpdatedAt)
	assert.Equal(t, now, conv.Messages[0].Timestamp)
}

func TestRecentReturnsTail(t *testing.T) {
	dir := newFakeDirectory()
	s := NewStore(dir, 0, logging.Silent())

	conv, err := s.GetOrCreate(context.Background(), "salon-a", "+49170", "")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		s.Append(conv, domain.Message{Role: domain.RoleUser, Text: string(rune('a' + i))})
	}

	tail := s.Recent(conv, 2)
	require.Len(t, tail, 2)
	assert.Equal(t, "d", tail[0].Text)
	assert.Equal(t, "e", tail[1].Text)

	all := s.Recent(conv, 0)
	assert.Len(t, all, 5)

	// The returned slice is a copy.
	tail[0].Text = "mutated"
	assert.Equal(t, "d", conv.Messages[3].Text)
}

func TestClearStartsFreshConversation(t *testing.T) {
	dir := newFakeDirectory()
	s := NewStore(dir, 0, logging.Silent())

	first, err := s.GetOrCreate(context.Background(), "salon-a", "+49170", "")
	require.NoError(t, err)
	s.Append(first, domain.Message{Role: domain.RoleUser, Text: "book me"})

	s.Clear("salon-a", "+49170")

	fresh, err := s.GetOrCreate(context.Background(), "salon-a", "+49170", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.Empty(t, fresh.Messages)
}

func TestLockKeySerializesSameKey(t *testing.T) {
	dir := newFakeDirectory()
	s := NewStore(dir, 0, logging.Silent())

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.LockKey("salon-a", "+49170")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}

func TestLockKeyAllowsDifferentKeysInParallel(t *testing.T) {
	dir := newFakeDirectory()
	s := NewStore(dir, 0, logging.Silent())

	unlockA := s.LockKey("salon-a", "+1")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := s.LockKey("salon-a", "+2")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different keys should not block each other")
	}
}
