package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-lookup-service/internal/account"
	"github.com/kjstillabower/weather-lookup-service/internal/kvstore"
)

func setup(t *testing.T) (*Tracker, *account.Store) {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	accounts := account.NewStore(kv, nil)
	_, err := accounts.Register(context.Background(), account.Registration{
		Name: "Ann", Email: "ann@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	return NewTracker(kv, accounts), accounts
}

func TestTracker_LoginLogout(t *testing.T) {
	ctx := context.Background()
	tr, _ := setup(t)

	sess, user, err := tr.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "ann@example.com", user.Email)

	got, err := tr.CurrentUser(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)

	require.NoError(t, tr.Logout(ctx, sess.Token))
	_, err = tr.Current(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, tr.Logout(ctx, sess.Token), ErrNoSession)
}

func TestTracker_Login_BadCredentials(t *testing.T) {
	tr, _ := setup(t)
	_, _, err := tr.Login(context.Background(), "ann@example.com", "nope")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}

func TestTracker_SecondLoginReplacesFirst(t *testing.T) {
	ctx := context.Background()
	tr, _ := setup(t)

	first, _, err := tr.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	second, _, err := tr.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	_, err = tr.Current(ctx, first.Token)
	assert.ErrorIs(t, err, ErrNoSession, "old token should be revoked")
	_, err = tr.Current(ctx, second.Token)
	assert.NoError(t, err)
}

func TestTracker_CurrentUser_DeletedAccount(t *testing.T) {
	ctx := context.Background()
	tr, accounts := setup(t)

	sess, _, err := tr.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, accounts.Delete(ctx, "ann@example.com"))

	_, err = tr.CurrentUser(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTracker_EndUserSession(t *testing.T) {
	ctx := context.Background()
	tr, _ := setup(t)

	sess, _, err := tr.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, tr.EndUserSession(ctx, "ann@example.com"))
	_, err = tr.Current(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.NoError(t, tr.EndUserSession(ctx, "nobody@example.com"))
}

func TestTracker_EmptyToken(t *testing.T) {
	tr, _ := setup(t)
	_, err := tr.Current(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSession)
}
