package users

import (
	"context"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-forum/library/captcha"
	"github.com/Laisky/laisky-forum/library/web"
)

// memStore is an in-memory Store
type memStore struct {
	mu      sync.Mutex
	users   []*User
	links   []*AuthLink
	tokens  []*TokenResetPassword
	lastHid int64
}

func newMemStore() *memStore {
	return &memStore{}
}

func notFound(what string) error {
	return errors.Wrapf(web.ErrNotFound, "%s not found", what)
}

func (s *memStore) FindUserByID(_ context.Context, id primitive.ObjectID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user")
}

func (s *memStore) FindUserByHid(_ context.Context, hid int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Hid == hid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user")
}

func (s *memStore) FindUserByNick(_ context.Context, nick string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Nick == nick {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user")
}

func (s *memStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHid++
	u.Hid = s.lastHid
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	s.users = append(s.users, &cp)
	return nil
}

func (s *memStore) findLink(match func(*AuthLink) bool) (*AuthLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if match(l) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, notFound("auth link")
}

func (s *memStore) FindPlainAuthLinkByEmail(_ context.Context, email string) (*AuthLink, error) {
	return s.findLink(func(l *AuthLink) bool {
		return l.Email == email && l.Type == AuthLinkPlain && l.Exist
	})
}

func (s *memStore) FindPlainAuthLinkByUser(_ context.Context, userID primitive.ObjectID) (*AuthLink, error) {
	return s.findLink(func(l *AuthLink) bool {
		return l.UserID == userID && l.Type == AuthLinkPlain && l.Exist
	})
}

func (s *memStore) FindAuthLinkByID(_ context.Context, id primitive.ObjectID) (*AuthLink, error) {
	return s.findLink(func(l *AuthLink) bool { return l.ID == id })
}

func (s *memStore) CreateAuthLink(_ context.Context, link *AuthLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if link.ID.IsZero() {
		link.ID = primitive.NewObjectID()
	}
	cp := *link
	s.links = append(s.links, &cp)
	return nil
}

func (s *memStore) SaveAuthLink(_ context.Context, link *AuthLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.links {
		if l.ID == link.ID {
			cp := *link
			s.links[i] = &cp
			return nil
		}
	}
	return notFound("auth link")
}

func (s *memStore) TouchAuthLink(_ context.Context, id primitive.ObjectID, ip string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.ID == id {
			l.IP = ip
			l.LastTs = ts
		}
	}
	return nil
}

func (s *memStore) CreateResetToken(_ context.Context, token *TokenResetPassword) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	cp := *token
	s.tokens = append(s.tokens, &cp)
	return nil
}

func (s *memStore) FindResetToken(_ context.Context, secretKey string) (*TokenResetPassword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.SecretKey == secretKey {
			cp := *t
			return &cp, nil
		}
	}
	return nil, notFound("reset token")
}

func (s *memStore) RemoveResetTokens(_ context.Context, authLinkID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tokens[:0]
	for _, t := range s.tokens {
		if t.AuthLinkID != authLinkID {
			kept = append(kept, t)
		}
	}
	s.tokens = kept
	return nil
}

func (s *memStore) tokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// memCounter is an in-memory throttle.Counter
type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}}
}

func (c *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func (c *memCounter) Count(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key], nil
}

func (c *memCounter) set(key string, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key] = n
}

func (c *memCounter) get(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

// fakeCaptcha accepts only the "ok" solution
type fakeCaptcha struct{}

func (fakeCaptcha) Enabled() bool { return true }

func (fakeCaptcha) Verify(_ context.Context, token, _ string) error {
	switch token {
	case "":
		return captcha.ErrMissingSolution
	case "ok":
		return nil
	default:
		return captcha.ErrWrongSolution
	}
}

// memMailer records sent mails
type memMailer struct {
	mu    sync.Mutex
	to    []string
	bodies []string
}

func (m *memMailer) Send(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.bodies = append(m.bodies, body)
	return nil
}

// fakeGroups resolves every short name to one fixed id
type fakeGroups struct {
	id primitive.ObjectID
}

func (g fakeGroups) GroupIDsByShortNames(_ context.Context, names []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(names))
	for range names {
		ids = append(ids, g.id)
	}
	return ids, nil
}
