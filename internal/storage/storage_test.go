package storage

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipwatch/ip-monitor-client/internal/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	return store
}

func signedToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	signed, err := tok.SignedString([]byte("test_secret"))
	require.NoError(t, err)
	return signed
}

func TestStore_SaveReadClear(t *testing.T) {
	store := newStore(t)
	user := &models.User{UID: "u-1", Username: "observer", Roles: []string{"USER"}}

	require.NoError(t, store.Save("some-token", user))

	creds, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "some-token", creds.Token)
	assert.Equal(t, user, creds.User)

	require.NoError(t, store.Clear())

	_, err = store.Read()
	assert.ErrorIs(t, err, ErrNoCredentials)

	// Повторная очистка не должна падать
	require.NoError(t, store.Clear())
}

func TestStore_Read_Empty(t *testing.T) {
	store := newStore(t)

	_, err := store.Read()
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestStore_IsExpired(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, s *Store)
		want  bool
	}{
		{
			name:  "no stored token",
			setup: func(t *testing.T, s *Store) {},
			want:  true,
		},
		{
			name: "future expiration",
			setup: func(t *testing.T, s *Store) {
				require.NoError(t, s.Save(signedToken(t, time.Hour), nil))
			},
			want: false,
		},
		{
			name: "past expiration",
			setup: func(t *testing.T, s *Store) {
				require.NoError(t, s.Save(signedToken(t, -time.Hour), nil))
			},
			want: true,
		},
		{
			name: "undecodable token",
			setup: func(t *testing.T, s *Store) {
				require.NoError(t, s.Save("garbage", nil))
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			tt.setup(t, store)
			assert.Equal(t, tt.want, store.IsExpired())
		})
	}
}

func TestStore_Preferences(t *testing.T) {
	store := newStore(t)

	prefs, err := store.ReadPreferences()
	require.NoError(t, err)
	assert.Equal(t, Preferences{}, prefs)

	require.NoError(t, store.SavePreferences(Preferences{Theme: "dark"}))

	count, err := store.IncrementSearchCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.IncrementSearchCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	prefs, err = store.ReadPreferences()
	require.NoError(t, err)
	assert.Equal(t, "dark", prefs.Theme)
	assert.Equal(t, 2, prefs.SearchCount)
}
