package auth_test

import (
	"context"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worklog/auth"
	"github.com/warp/worklog/generic"
	"github.com/warp/worklog/store/memory"
)

func newAccounts(t *testing.T) (*auth.Accounts, *auth.Tokens, *generic.ManualClock) {
	clock := generic.NewManualClock(time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC))
	tokens := auth.NewTokens("test-secret", time.Hour, clock)
	logger, _ := logtest.NewNullLogger()
	return auth.NewAccounts(memory.New(), tokens, clock, logger), tokens, clock
}

func TestAccounts_LoginAndParse(t *testing.T) {
	// GIVEN: A seeded admin
	// WHEN: Logging in with the right password
	// THEN: The token parses back to an elevated actor

	accounts, tokens, _ := newAccounts(t)
	ctx := context.Background()

	admin, created, err := accounts.EnsureAdmin(ctx, "admin", "correct horse")
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = accounts.EnsureAdmin(ctx, "admin", "other")
	require.NoError(t, err)
	assert.False(t, created, "seeding twice is a no-op")

	token, _, user, err := accounts.Login(ctx, "ADMIN", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, user.ID)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, generic.Actor{UserID: admin.ID, Elevated: true}, claims.Actor())

	_, _, _, err = accounts.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, _, _, err = accounts.Login(ctx, "nobody", "x")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestTokens_ExpiryAndRevocation(t *testing.T) {
	accounts, tokens, clock := newAccounts(t)
	ctx := context.Background()
	_, _, err := accounts.EnsureAdmin(ctx, "admin", "pw-123456")
	require.NoError(t, err)

	token, _, _, err := accounts.Login(ctx, "admin", "pw-123456")
	require.NoError(t, err)
	claims, err := tokens.Parse(token)
	require.NoError(t, err)

	accounts.Logout(claims)
	_, err = tokens.Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	fresh, _, _, err := accounts.Login(ctx, "admin", "pw-123456")
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	_, err = tokens.Parse(fresh)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "expired")

	_, err = tokens.Parse("garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAccounts_CreateUserRequiresElevation(t *testing.T) {
	accounts, _, _ := newAccounts(t)
	ctx := context.Background()
	admin, _, err := accounts.EnsureAdmin(ctx, "admin", "pw-123456")
	require.NoError(t, err)

	_, err = accounts.CreateUser(ctx, generic.Actor{UserID: "someone"}, auth.NewUser{Username: "bob", Password: "pw"})
	assert.ErrorIs(t, err, generic.ErrForbidden)

	elevated := generic.Actor{UserID: admin.ID, Elevated: true}
	bob, err := accounts.CreateUser(ctx, elevated, auth.NewUser{Username: "bob", Password: "pw-bob-123", MaxSession: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, bob.MaxSession)

	_, err = accounts.CreateUser(ctx, elevated, auth.NewUser{Username: "Bob", Password: "pw"})
	assert.ErrorIs(t, err, generic.ErrDuplicateName)

	_, err = accounts.CreateUser(ctx, elevated, auth.NewUser{Username: " ", Password: "pw"})
	assert.ErrorIs(t, err, generic.ErrValidation)

	users, err := accounts.ListUsers(ctx, generic.Actor{UserID: bob.ID}, generic.Page{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	users, err = accounts.ListUsers(ctx, elevated, generic.Page{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAccounts_ChangePassword(t *testing.T) {
	accounts, _, _ := newAccounts(t)
	ctx := context.Background()
	admin, _, err := accounts.EnsureAdmin(ctx, "admin", "old-password")
	require.NoError(t, err)
	actor := generic.Actor{UserID: admin.ID, Elevated: true}

	err = accounts.ChangePassword(ctx, actor, "wrong", "new-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	err = accounts.ChangePassword(ctx, actor, "old-password", "short")
	assert.ErrorIs(t, err, generic.ErrValidation)

	require.NoError(t, accounts.ChangePassword(ctx, actor, "old-password", "new-password"))
	_, _, _, err = accounts.Login(ctx, "admin", "new-password")
	assert.NoError(t, err)
}
