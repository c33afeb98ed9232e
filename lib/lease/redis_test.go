package lease

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	values  map[string]string
	failSet bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (s *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return false, errors.New("connection refused")
	}
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *fakeStore) CompareAndDelete(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[key] == value {
		delete(s.values, key)
	}
	return nil
}

func TestLeaseIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	first, err := New(store, "", time.Second)
	require.NoError(t, err)
	second, err := New(store, "", time.Second)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// releasing a lease we do not hold leaves the owner in place
	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, DefaultKey)

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseAfterExpiryKeepsNewOwner(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	first, _ := New(store, "k", time.Second)
	second, _ := New(store, "k", time.Second)

	ok, _ := first.Acquire(ctx)
	require.True(t, ok)
	// simulate TTL expiry
	delete(store.values, "k")
	ok, _ = second.Acquire(ctx)
	require.True(t, ok)

	require.NoError(t, first.Release(ctx))
	ok, _ = first.Acquire(ctx)
	assert.False(t, ok)
}

func TestAcquireError(t *testing.T) {
	store := newFakeStore()
	store.failSet = true
	l, err := New(store, "k", 0)
	require.NoError(t, err)
	_, err = l.Acquire(context.Background())
	assert.ErrorContains(t, err, "setnx")
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil, "k", time.Second)
	assert.Error(t, err)
}
