package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"brokemate/internal/core"
	"brokemate/internal/session"
	"brokemate/internal/storage"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	svc      *Service
	repo     *storage.Repository
	sessions *session.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo, err := storage.Open(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	sessions := session.NewMemoryStore(time.Hour)
	t.Cleanup(sessions.Stop)
	svc := NewService(repo, sessions, session.NewCodec(testSecret, time.Hour))
	svc.cost = bcrypt.MinCost
	return fixture{svc: svc, repo: repo, sessions: sessions}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "  Alice@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Empty(t, user.HashedPassword)
	assert.True(t, user.Budget.Equal(core.DefaultBudget))

	stored, err := f.repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.HashedPassword)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.HashedPassword), []byte("secret1")))

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		_, err := f.svc.Register(ctx, "alice@example.com", "another1")
		assert.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("duplicate differing only in case", func(t *testing.T) {
		_, err := f.svc.Register(ctx, "ALICE@example.com", "another1")
		assert.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			name     string
			email    string
			password string
			detail   error
		}{
			{"empty email", "", "secret1", core.ErrInvalidEmail},
			{"malformed email", "not-an-email", "secret1", core.ErrInvalidEmail},
			{"display name form", "Bob <bob@example.com>", "secret1", core.ErrInvalidEmail},
			{"short password", "bob@example.com", "12345", core.ErrPasswordTooShort},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.Register(ctx, tt.email, tt.password)
				assert.ErrorIs(t, err, core.ErrValidation)
				assert.ErrorIs(t, err, tt.detail)
			})
		}
	})
}

func TestLoginAndCurrentUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, err := f.svc.Register(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, "alice@example.com", "wrong-password")
		assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, "nobody@example.com", "secret1")
		assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	})

	cookie, user, err := f.svc.Login(ctx, "Alice@Example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, cookie)
	assert.Equal(t, registered.ID, user.ID)
	assert.Empty(t, user.HashedPassword)
	assert.Equal(t, 1, f.sessions.Len())

	current, err := f.svc.CurrentUser(ctx, cookie)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, registered.ID, current.ID)
	assert.Equal(t, "alice@example.com", current.Email)
	assert.Empty(t, current.HashedPassword)

	t.Run("no cookie means no user", func(t *testing.T) {
		u, err := f.svc.CurrentUser(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("forged cookie means no user", func(t *testing.T) {
		other, err := session.NewCodec([]byte("ffffffffffffffffffffffffffffffff"), time.Hour).Encode("whatever")
		require.NoError(t, err)
		u, err := f.svc.CurrentUser(ctx, other)
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("validly signed cookie for unknown session", func(t *testing.T) {
		orphan, err := session.NewCodec(testSecret, time.Hour).Encode("no-such-session")
		require.NoError(t, err)
		u, err := f.svc.CurrentUser(ctx, orphan)
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("logout ends the session", func(t *testing.T) {
		require.NoError(t, f.svc.Logout(ctx, cookie))
		u, err := f.svc.CurrentUser(ctx, cookie)
		assert.NoError(t, err)
		assert.Nil(t, u)
		assert.Equal(t, 0, f.sessions.Len())

		// Idempotent, including for garbage.
		assert.NoError(t, f.svc.Logout(ctx, cookie))
		assert.NoError(t, f.svc.Logout(ctx, ""))
		assert.NoError(t, f.svc.Logout(ctx, "garbage"))
	})
}

func TestCurrentUser_DeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.Create(ctx, 4242)
	require.NoError(t, err)
	cookie, err := f.svc.codec.Encode(sid)
	require.NoError(t, err)

	u, err := f.svc.CurrentUser(ctx, cookie)
	assert.NoError(t, err)
	assert.Nil(t, u)
}
