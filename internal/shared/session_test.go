package shared

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.data[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return data, nil
}

func (s *memoryStore) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	s.data[key] = data
	return nil
}

func (s *memoryStore) Del(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	store := newMemoryStore()
	sm := NewSessionManager(store, "test_session", "test-secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("42")
	sess.Set("theme", "dark")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "test_session", cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)

	// A follow-up request with the cookie resumes the same session.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	resumed, err := sm.Load(context.Background(), req2)
	require.NoError(t, err)
	require.Equal(t, "42", resumed.User())
	require.Equal(t, "dark", resumed.Get("theme"))
}

func TestSessionInvalidate(t *testing.T) {
	store := newMemoryStore()
	sm := NewSessionManager(store, "test_session", "test-secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("42")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, sess))
	require.Len(t, store.data, 1)

	sess.Invalidate()
	rec2 := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec2, sess))
	require.Empty(t, store.data)

	cleared := rec2.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)
}

func TestSessionIDMaskedBySecret(t *testing.T) {
	store := newMemoryStore()
	sm := NewSessionManager(store, "test_session", "test-secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("42")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	raw, err := base64.RawURLEncoding.DecodeString(cookies[0].Value)
	require.NoError(t, err)
	require.Len(t, raw, 32)
}

func TestCurrentUserID(t *testing.T) {
	require.Zero(t, CurrentUserID(context.Background()))

	sess := &Session{}
	sess.SetUser("17")
	ctx := ContextWithSession(context.Background(), sess)
	require.Equal(t, int64(17), CurrentUserID(ctx))

	anon := &Session{}
	require.Zero(t, CurrentUserID(ContextWithSession(context.Background(), anon)))
}
