package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const identityCacheTTL = 5 * time.Minute

// Session is the single process-wide identity context. Every consumer gets it
// injected instead of re-querying the provider piecemeal, and can subscribe
// to the identity-changed signal.
//
// "No identity" and "check failed" are deliberately indistinguishable: both
// come back as a signed-out result, never as an error.
type Session struct {
	provider Provider
	cache    *redis.Client // optional
	log      *slog.Logger

	mu          sync.RWMutex
	current     Identity
	signedIn    bool
	accessToken string
	subs        map[int]chan Identity
	nextSub     int
}

func NewSession(p Provider, cache *redis.Client, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		provider: p,
		cache:    cache,
		log:      log,
		subs:     make(map[int]chan Identity),
	}
}

func (s *Session) SignUp(ctx context.Context, cred Credentials) error {
	return s.provider.SignUp(ctx, cred)
}

func (s *Session) ConfirmSignUp(ctx context.Context, email, code string) error {
	return s.provider.ConfirmSignUp(ctx, email, code)
}

// SignIn resolves tokens and identity, makes it the session's current
// identity and notifies subscribers.
func (s *Session) SignIn(ctx context.Context, cred Credentials) (Identity, *Tokens, error) {
	tok, err := s.provider.SignIn(ctx, cred)
	if err != nil {
		return Identity{}, nil, err
	}
	id, err := s.provider.CurrentUser(ctx, tok.AccessToken)
	if err != nil {
		return Identity{}, nil, err
	}
	if role, err := RoleFromIDToken(tok.IDToken); err == nil && role != "" {
		id.Role = role
	}

	s.mu.Lock()
	s.current = *id
	s.signedIn = true
	s.accessToken = tok.AccessToken
	s.mu.Unlock()

	s.cachePut(ctx, tok.AccessToken, *id)
	s.notify(*id)
	return *id, tok, nil
}

func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	token := s.accessToken
	s.current = Identity{}
	s.signedIn = false
	s.accessToken = ""
	s.mu.Unlock()

	if token != "" {
		s.cacheDel(ctx, token)
		if err := s.provider.SignOut(ctx, token); err != nil {
			s.log.Warn("provider sign-out failed", "error", err)
		}
	}
	s.notify(Identity{})
	return nil
}

// Current reports the session's own identity without touching the provider.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.signedIn
}

// Identify resolves the identity behind an access token, consulting the Redis
// cache before the provider. Every failure mode collapses into (zero, false).
func (s *Session) Identify(ctx context.Context, accessToken string) (Identity, bool) {
	if accessToken == "" {
		return Identity{}, false
	}
	if id, ok := s.cacheGet(ctx, accessToken); ok {
		return id, true
	}
	id, err := s.provider.CurrentUser(ctx, accessToken)
	if err != nil {
		if err != ErrNoSession {
			s.log.Debug("identity resolution failed", "error", err)
		}
		return Identity{}, false
	}
	s.cachePut(ctx, accessToken, *id)
	return *id, true
}

// Subscribe returns a channel that receives the identity after every change.
// The returned func cancels the subscription.
func (s *Session) Subscribe() (<-chan Identity, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.nextSub
	s.nextSub++
	ch := make(chan Identity, 1)
	s.subs[key] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, key)
	}
}

func (s *Session) notify(id Identity) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- id:
		default: // slow subscriber keeps only the latest pending change
			select {
			case <-ch:
			default:
			}
			ch <- id
		}
	}
}

func cacheKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return "session:" + hex.EncodeToString(sum[:])
}

func (s *Session) cachePut(ctx context.Context, token string, id Identity) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(token), raw, identityCacheTTL).Err(); err != nil {
		s.log.Debug("identity cache write failed", "error", err)
	}
}

func (s *Session) cacheGet(ctx context.Context, token string) (Identity, bool) {
	if s.cache == nil {
		return Identity{}, false
	}
	raw, err := s.cache.Get(ctx, cacheKey(token)).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Debug("identity cache read failed", "error", err)
		}
		return Identity{}, false
	}
	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return Identity{}, false
	}
	return id, true
}

func (s *Session) cacheDel(ctx context.Context, token string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, cacheKey(token)).Err()
}
