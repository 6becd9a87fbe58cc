package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/worklog/generic"
)

// NewUser is the input for CreateUser.
type NewUser struct {
	Username      string
	Password      string
	IsAdmin       bool
	ExpectedHours [7]decimal.Decimal
	MaxSession    time.Duration
}

// Accounts handles login and user management on top of a generic.Store.
type Accounts struct {
	store  generic.Store
	tokens *Tokens
	clock  generic.Clock
	log    logrus.FieldLogger
}

func NewAccounts(store generic.Store, tokens *Tokens, clock generic.Clock, log logrus.FieldLogger) *Accounts {
	return &Accounts{store: store, tokens: tokens, clock: clock, log: log}
}

// Login checks the password and issues an access token.
func (a *Accounts) Login(ctx context.Context, username, password string) (string, time.Time, *generic.User, error) {
	user, err := a.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", time.Time{}, nil, err
	}
	if user == nil || CheckPassword(user.PasswordHash, password) != nil {
		a.log.WithField("username", username).Warn("login failed")
		return "", time.Time{}, nil, ErrInvalidCredentials
	}

	token, expires, err := a.tokens.Issue(*user)
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("issue token: %w", err)
	}
	a.log.WithField("user_id", user.ID).Info("login")
	return token, expires, user, nil
}

// Logout revokes the presented token.
func (a *Accounts) Logout(claims *Claims) {
	a.tokens.Revoke(claims)
}

// Me returns the actor's user record.
func (a *Accounts) Me(ctx context.Context, actor generic.Actor) (*generic.User, error) {
	user, err := a.store.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, generic.ErrNotFound
	}
	return user, nil
}

// ChangePassword replaces the actor's password after checking the old one.
func (a *Accounts) ChangePassword(ctx context.Context, actor generic.Actor, oldPassword, newPassword string) error {
	user, err := a.Me(ctx, actor)
	if err != nil {
		return err
	}
	if CheckPassword(user.PasswordHash, oldPassword) != nil {
		return ErrInvalidCredentials
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", generic.ErrValidation)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := a.store.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	a.log.WithField("user_id", user.ID).Info("password changed")
	return nil
}

// CreateUser adds a user. Only elevated actors may call it.
func (a *Accounts) CreateUser(ctx context.Context, actor generic.Actor, in NewUser) (*generic.User, error) {
	if !actor.Elevated {
		return nil, generic.ErrForbidden
	}
	return a.create(ctx, in)
}

// ListUsers returns everyone for elevated actors and the actor alone otherwise.
func (a *Accounts) ListUsers(ctx context.Context, actor generic.Actor, page generic.Page) ([]generic.User, error) {
	if !actor.Elevated {
		user, err := a.Me(ctx, actor)
		if err != nil {
			return nil, err
		}
		return []generic.User{*user}, nil
	}
	return a.store.ListUsers(ctx, page)
}

// EnsureAdmin creates the seed administrator unless the username exists.
func (a *Accounts) EnsureAdmin(ctx context.Context, username, password string) (*generic.User, bool, error) {
	existing, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	user, err := a.create(ctx, NewUser{Username: username, Password: password, IsAdmin: true})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (a *Accounts) create(ctx context.Context, in NewUser) (*generic.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", generic.ErrValidation)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := generic.User{
		ID:            generic.UserID(uuid.NewString()),
		Username:      username,
		PasswordHash:  hash,
		IsAdmin:       in.IsAdmin,
		ExpectedHours: in.ExpectedHours,
		MaxSession:    in.MaxSession,
		CreatedAt:     a.clock.Now().UTC(),
	}
	for i := range user.ExpectedHours {
		if user.ExpectedHours[i].IsNegative() {
			return nil, fmt.Errorf("expected hours must not be negative: %w", generic.ErrValidation)
		}
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"user_id": user.ID, "is_admin": user.IsAdmin}).Info("user created")
	return &user, nil
}
