package announcement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/memorywall/memorywall/pkg/errors"
)

type fakeStore struct {
	byID   map[string]*Announcement
	active string
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[string]*Announcement)}
}

func (s *fakeStore) Insert(_ context.Context, a *Announcement) error {
	s.byID[a.ID] = a
	if a.Active {
		if prev, ok := s.byID[s.active]; ok {
			prev.Active = false
		}
		s.active = a.ID
	}
	return nil
}

func (s *fakeStore) GetActive(context.Context) (*Announcement, error) {
	a, ok := s.byID[s.active]
	if !ok || !a.Active {
		return nil, errors.ErrNotFound
	}
	return a, nil
}

func (s *fakeStore) Deactivate(_ context.Context, id string) error {
	a, ok := s.byID[id]
	if !ok {
		return errors.ErrNotFound
	}
	a.Active = false
	return nil
}

func TestCreateAndActive(t *testing.T) {
	svc := NewService(newFakeStore(), nil, zaptest.NewLogger(t))

	a, err := svc.Create(context.Background(), "  Welcome to the wall  ", true)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the wall", a.Message)
	assert.NotEmpty(t, a.ID)

	active, err := svc.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)
}

func TestCreateReplacesActive(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, zaptest.NewLogger(t))

	first, err := svc.Create(context.Background(), "first", true)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), "second", true)
	require.NoError(t, err)

	active, err := svc.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.False(t, store.byID[first.ID].Active, "only one announcement may be active")
}

func TestCreateRejectsEmptyMessage(t *testing.T) {
	svc := NewService(newFakeStore(), nil, zaptest.NewLogger(t))
	_, err := svc.Create(context.Background(), "   ", true)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestDeactivate(t *testing.T) {
	svc := NewService(newFakeStore(), nil, zaptest.NewLogger(t))

	a, err := svc.Create(context.Background(), "temporary", true)
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), a.ID))

	_, err = svc.Active(context.Background())
	assert.ErrorIs(t, err, errors.ErrNotFound)

	assert.ErrorIs(t, svc.Deactivate(context.Background(), "missing"), errors.ErrNotFound)
}
