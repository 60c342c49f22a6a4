// Package session tracks the active login of each user.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kjstillabower/weather-lookup-service/internal/account"
	"github.com/kjstillabower/weather-lookup-service/internal/kvstore"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

// ErrNoSession is returned when a token does not name an active session.
var ErrNoSession = errors.New("no active session")

const (
	sessionKeyPrefix = "session:"
	userKeyPrefix    = "session-user:"
)

// Accounts is the subset of the account store the tracker needs.
type Accounts interface {
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// Tracker keeps one session record per user. Logging in again replaces the previous
// session, so the old token stops working.
type Tracker struct {
	mu       sync.Mutex
	kv       kvstore.Store
	accounts Accounts
	now      func() time.Time
}

func NewTracker(kv kvstore.Store, accounts Accounts) *Tracker {
	return &Tracker{kv: kv, accounts: accounts, now: time.Now}
}

// Login authenticates and opens a new session for the user.
func (t *Tracker) Login(ctx context.Context, email, password string) (models.Session, models.User, error) {
	user, err := t.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return models.Session{}, models.User{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok, err := t.kv.Get(ctx, userKeyPrefix+user.Email); err != nil {
		return models.Session{}, models.User{}, fmt.Errorf("load previous session: %w", err)
	} else if ok {
		if err := t.kv.Remove(ctx, sessionKeyPrefix+prev); err != nil {
			return models.Session{}, models.User{}, fmt.Errorf("drop previous session: %w", err)
		}
	}

	sess := models.Session{
		Token:     uuid.New().String(),
		Email:     user.Email,
		CreatedAt: t.now().UTC(),
	}
	if err := kvstore.SetJSON(ctx, t.kv, sessionKeyPrefix+sess.Token, sess); err != nil {
		return models.Session{}, models.User{}, err
	}
	if err := t.kv.Set(ctx, userKeyPrefix+user.Email, sess.Token); err != nil {
		return models.Session{}, models.User{}, fmt.Errorf("index session: %w", err)
	}
	return sess, user, nil
}

// Logout ends the session named by token. Unknown tokens return ErrNoSession.
func (t *Tracker) Logout(ctx context.Context, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, err := t.current(ctx, token)
	if err != nil {
		return err
	}
	if err := t.kv.Remove(ctx, sessionKeyPrefix+token); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	if err := t.kv.Remove(ctx, userKeyPrefix+sess.Email); err != nil {
		return fmt.Errorf("remove session index: %w", err)
	}
	return nil
}

// EndUserSession drops whatever session the user holds. Used when an account is deleted.
func (t *Tracker) EndUserSession(ctx context.Context, email string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	token, ok, err := t.kv.Get(ctx, userKeyPrefix+email)
	if err != nil || !ok {
		return err
	}
	if err := t.kv.Remove(ctx, sessionKeyPrefix+token); err != nil {
		return err
	}
	return t.kv.Remove(ctx, userKeyPrefix+email)
}

// Current returns the session for token.
func (t *Tracker) Current(ctx context.Context, token string) (models.Session, error) {
	return t.current(ctx, token)
}

func (t *Tracker) current(ctx context.Context, token string) (models.Session, error) {
	if token == "" {
		return models.Session{}, ErrNoSession
	}
	var sess models.Session
	ok, err := kvstore.GetJSON(ctx, t.kv, sessionKeyPrefix+token, &sess)
	if err != nil {
		return models.Session{}, err
	}
	if !ok {
		return models.Session{}, ErrNoSession
	}
	return sess, nil
}

// CurrentUser resolves token to the signed-in user. A session whose user was deleted
// reports ErrNoSession.
func (t *Tracker) CurrentUser(ctx context.Context, token string) (models.User, error) {
	sess, err := t.Current(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	user, err := t.accounts.FindByEmail(ctx, sess.Email)
	if errors.Is(err, account.ErrUserNotFound) {
		return models.User{}, ErrNoSession
	}
	return user, err
}
