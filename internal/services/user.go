package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log"
	"time"

	"github.com/libshelf/apiserver/internal/events"
	"github.com/libshelf/apiserver/internal/store"
	"github.com/libshelf/apiserver/types"
)

const (
	// DefaultTokenTTL is the token lifetime used when the caller does
	// not ask for a specific one.
	DefaultTokenTTL = 24 * time.Hour

	// tokenReuseMargin is how much life a token must have left for
	// login to hand it out again instead of minting a fresh one. A
	// token is never returned moments before it expires mid-use.
	tokenReuseMargin = 60 * time.Second

	// revokeBackdate pushes the expiry past the reuse margin so a
	// revoked token can never be resurrected by a reuse check.
	revokeBackdate = 61 * time.Second

	tokenEntropyBytes = 32
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByToken(ctx context.Context, token string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdateToken(ctx context.Context, id int, token string, exp time.Time) error
	Delete(ctx context.Context, id int) error
}

// UserService encapsulates user use-cases, including the opaque token
// lifecycle.
type UserService struct {
	repo      UserRepository
	publisher *events.Publisher
}

func NewUserService(repo UserRepository, publisher *events.Publisher) *UserService {
	return &UserService{repo: repo, publisher: publisher}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.publish(ctx, events.ActionCreated, created.ID)
	return created, nil
}

func (s *UserService) Update(ctx context.Context, user types.User) (types.User, error) {
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.publish(ctx, events.ActionUpdated, updated.ID)
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.ActionDeleted, id)
	return nil
}

// IssueToken returns a bearer token for the user, valid for ttl. If the
// user already holds a token with more than tokenReuseMargin of life
// left, that token is returned unchanged so concurrent holders are not
// invalidated needlessly.
func (s *UserService) IssueToken(ctx context.Context, user types.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now().UTC()
	if user.HasToken() && user.TokenExp.After(now.Add(tokenReuseMargin)) {
		return user.Token, nil
	}

	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	if err := s.repo.UpdateToken(ctx, user.ID, token, now.Add(ttl)); err != nil {
		return "", err
	}
	return token, nil
}

// RevokeToken backdates the user's token expiry, making the token
// permanently unusable. The token value itself is kept for auditing.
func (s *UserService) RevokeToken(ctx context.Context, user types.User) error {
	if !user.HasToken() {
		return nil
	}
	exp := time.Now().UTC().Add(-revokeBackdate)
	if err := s.repo.UpdateToken(ctx, user.ID, user.Token, exp); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Entity: events.EntityToken,
		Action: events.ActionRevoked,
		ID:     user.ID,
	})
	return nil
}

// ResolveToken returns the user holding the token. It fails with
// store.ErrNotFound when no user holds it or its expiry has passed.
func (s *UserService) ResolveToken(ctx context.Context, token string) (types.User, error) {
	if token == "" {
		return types.User{}, store.ErrNotFound
	}
	user, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return types.User{}, err
	}
	if !time.Now().UTC().Before(user.TokenExp) {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (s *UserService) publish(ctx context.Context, action string, id int) {
	s.publishEvent(ctx, events.Event{
		Entity: events.EntityUser,
		Action: action,
		ID:     id,
	})
}

func (s *UserService) publishEvent(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("events: publish %s.%s: %v", ev.Entity, ev.Action, err)
	}
}
