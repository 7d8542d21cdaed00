package credkit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/credkit/credkit/email"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// fakeAccountStore is an in-memory AccountStore for tests.
type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*Account

	findErr   error
	updateErr error
}

func newFakeAccountStore(accounts ...*Account) *fakeAccountStore {
	s := &fakeAccountStore{accounts: make(map[string]*Account)}
	for _, a := range accounts {
		s.accounts[a.Email] = a
	}
	return s
}

func (s *fakeAccountStore) FindBySubject(_ context.Context, subject string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	acct, ok := s.accounts[subject]
	if !ok {
		return nil, nil
	}
	cp := *acct
	return &cp, nil
}

func (s *fakeAccountStore) UpdateVerified(_ context.Context, subject string, verified bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return 0, s.updateErr
	}
	acct, ok := s.accounts[subject]
	if !ok {
		return 0, nil
	}
	acct.Verified = verified
	return 1, nil
}

func (s *fakeAccountStore) UpdatePasswordDigest(_ context.Context, subject, digest string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return 0, s.updateErr
	}
	acct, ok := s.accounts[subject]
	if !ok {
		return 0, nil
	}
	acct.PasswordDigest = digest
	return 1, nil
}

func (s *fakeAccountStore) get(subject string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[subject]
}

type capturedEmail struct {
	Recipient string
	Subject   string
	Body      string
}

// captureSender records deliveries instead of sending them.
type captureSender struct {
	mu         sync.Mutex
	deliveries []capturedEmail
	fail       bool
}

var errDeliverRefused = errors.New("provider refused the message")

func (s *captureSender) Deliver(_ context.Context, recipient, subject, htmlBody string) (email.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return email.Result{Success: false, Message: "provider refused the message"}, errDeliverRefused
	}
	s.deliveries = append(s.deliveries, capturedEmail{Recipient: recipient, Subject: subject, Body: htmlBody})
	return email.Result{Success: true, Message: "delivered"}, nil
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deliveries)
}

func (s *captureSender) last() capturedEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliveries[len(s.deliveries)-1]
}

type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) { return "plain:" + plaintext, nil }
func (plainHasher) Verify(plaintext, digest string) bool  { return "plain:"+plaintext == digest }

func newTestEngine(t *testing.T, mutate func(*Config), opts ...func(*Builder)) (*Engine, *fakeAccountStore) {
	t.Helper()

	_, client := newTestRedis(t)

	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("unit-test-secret")
	if mutate != nil {
		mutate(&cfg)
	}

	accounts := newFakeAccountStore(&Account{
		ID:             "u-1",
		Email:          "a@example.com",
		PasswordDigest: "plain:hunter2",
	})

	b := New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccountStore(accounts).
		WithPasswordHasher(plainHasher{}).
		WithLogger(zerolog.Nop())
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine, accounts
}
