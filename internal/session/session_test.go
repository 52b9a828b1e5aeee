package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/ticket-storefront/internal/domain"
)

type fakeKV struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Duration
	err    error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeKV) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Update(_ context.Context, key string, ttl time.Duration, fn func([]byte, bool) ([]byte, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	current, found := f.values[key]
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	f.values[key] = next
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return f.err
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  NewRedisStore(newFakeKV(), time.Hour),
	}
}

func TestStore_UnknownIDIsEmpty(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			data, err := store.Get(context.Background(), "missing")
			require.NoError(t, err)
			assert.Empty(t, data.Token)
			assert.Nil(t, data.Profile)
		})
	}
}

func TestStore_SaveGetDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "s1", &Data{Token: "tok", Profile: &domain.UserProfile{Email: "a@b.c"}}))

			data, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "tok", data.Token)
			assert.Equal(t, "a@b.c", data.Profile.Email)

			require.NoError(t, store.Delete(ctx, "s1"))
			data, err = store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Empty(t, data.Token)
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(context.Background(), "s1", &Data{Token: "tok"}))

	now = now.Add(2 * time.Minute)
	data, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, data.Token)
}

func TestRedisStore_UsesTTLAndSurfacesErrors(t *testing.T) {
	kv := newFakeKV()
	store := NewRedisStore(kv, 30*time.Minute)

	require.NoError(t, store.Save(context.Background(), "abc", &Data{Token: "tok"}))
	assert.Equal(t, 30*time.Minute, kv.ttls[sessionKeyPrefix+"abc"])

	kv.err = errors.New("connection reset")
	_, err := store.Get(context.Background(), "abc")
	assert.Error(t, err)
}

func TestManager_SignInTokenSignOut(t *testing.T) {
	m := NewManager(NewMemoryStore(0))
	ctx := WithID(context.Background(), "sid")

	require.NoError(t, m.SignIn(ctx, "tok", &domain.UserProfile{Name: "Dupont"}))
	token, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.NoError(t, m.SignOut(ctx))
	token, err = m.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestManager_NoSessionInContext(t *testing.T) {
	m := NewManager(NewMemoryStore(0))

	_, err := m.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_HistoryNewestFirst(t *testing.T) {
	m := NewManager(NewMemoryStore(0))
	ctx := WithID(context.Background(), "sid")

	require.NoError(t, m.RecordReservation(ctx, domain.ReservationRecord{Result: domain.ReservationResult{ReservationNumber: "R-1"}}))
	require.NoError(t, m.RecordReservation(ctx, domain.ReservationRecord{Result: domain.ReservationResult{ReservationNumber: "R-2"}}))

	history, err := m.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "R-2", history[0].Result.ReservationNumber)
	assert.Equal(t, "R-1", history[1].Result.ReservationNumber)
}

func TestManager_ConcurrentUpdatesKeepEveryChange(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(store)
			ctx := WithID(context.Background(), "sid")

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(2)
				go func(i int) {
					defer wg.Done()
					record := domain.ReservationRecord{Result: domain.ReservationResult{ReservationNumber: fmt.Sprintf("R-%d", i)}}
					assert.NoError(t, m.RecordReservation(ctx, record))
				}(i)
				go func(i int) {
					defer wg.Done()
					assert.NoError(t, m.SetProfile(ctx, &domain.UserProfile{Name: fmt.Sprintf("user-%d", i)}))
				}(i)
			}
			wg.Wait()

			history, err := m.History(ctx)
			require.NoError(t, err)
			assert.Len(t, history, 20)

			_, data, err := m.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, data.Profile)
			assert.Contains(t, data.Profile.Name, "user-")
		})
	}
}

func TestRedisStore_UpdateSurfacesErrors(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("connection reset")
	store := NewRedisStore(kv, time.Minute)

	err := store.Update(context.Background(), "abc", func(d *Data) { d.Token = "tok" })
	assert.ErrorContains(t, err, "update session")
}
