package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type MockConfig struct {
	LoginLatency   time.Duration
	RefreshLatency time.Duration
	QueryLatency   time.Duration
	AccessTokenTTL time.Duration
	Secret         []byte
}

func DefaultMockConfig() MockConfig {
	return MockConfig{
		LoginLatency:   500 * time.Millisecond,
		RefreshLatency: 300 * time.Millisecond,
		QueryLatency:   200 * time.Millisecond,
		AccessTokenTTL: time.Hour,
		Secret:         []byte("docvault-mock-secret"),
	}
}

type account struct {
	hash []byte
	user models.User
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// MockClient is an in-process backend. It is safe for concurrent use.
type MockClient struct {
	cfg      MockConfig
	accounts map[string]account
	now      func() time.Time

	mu      sync.Mutex
	refresh map[string]string // refresh token -> user id
	closed  bool
}

var demoUsers = []struct {
	password string
	user     models.User
}{
	{"demo123", models.User{ID: "user-001", Email: "demo@test.com", Name: "Demo User", Role: models.RoleMember}},
	{"admin123", models.User{ID: "user-002", Email: "admin@test.com", Name: "Admin User", Role: models.RoleAdmin}},
}

func NewMockClient(cfg MockConfig) (*MockClient, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("mock client: empty signing secret")
	}
	m := &MockClient{
		cfg:      cfg,
		accounts: make(map[string]account, len(demoUsers)),
		refresh:  make(map[string]string),
		now:      time.Now,
	}
	for _, d := range demoUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash demo password: %w", err)
		}
		m.accounts[d.user.Email] = account{hash: hash, user: d.user}
	}
	return m, nil
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MockClient) checkOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrUnavailable
	}
	return nil
}

func (m *MockClient) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if err := sleep(ctx, m.cfg.LoginLatency); err != nil {
		return LoginResult{}, err
	}
	if err := m.checkOpen(); err != nil {
		return LoginResult{}, err
	}

	acc, ok := m.accounts[email]
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	creds, err := m.issue(acc.user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Credentials: creds, User: acc.user}, nil
}

// Refresh trades a refresh token for a new pair. The old refresh token is
// invalidated.
func (m *MockClient) Refresh(ctx context.Context, refreshToken string) (models.Credentials, error) {
	if err := sleep(ctx, m.cfg.RefreshLatency); err != nil {
		return models.Credentials{}, err
	}
	if err := m.checkOpen(); err != nil {
		return models.Credentials{}, err
	}

	m.mu.Lock()
	userID, ok := m.refresh[refreshToken]
	delete(m.refresh, refreshToken)
	m.mu.Unlock()
	if !ok {
		return models.Credentials{}, ErrInvalidRefreshToken
	}

	for _, acc := range m.accounts {
		if acc.user.ID == userID {
			return m.issue(acc.user)
		}
	}
	return models.Credentials{}, fmt.Errorf("user %s: %w", userID, common.ErrorNotFound)
}

func (m *MockClient) issue(u models.User) (models.Credentials, error) {
	now := m.now()
	c := claims{
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AccessTokenTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.cfg.Secret)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("sign access token: %w", err)
	}

	suffix, err := common.MakeRandHexString(16)
	if err != nil {
		return models.Credentials{}, err
	}
	refresh := fmt.Sprintf("refresh-%s-%d-%s", u.ID, now.UnixMilli(), suffix)

	m.mu.Lock()
	m.refresh[refresh] = u.ID
	m.mu.Unlock()

	return models.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *MockClient) verify(accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	_, err := jwt.ParseWithClaims(accessToken, &claims{}, func(*jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrUnauthorized, common.ErrTokenExpired)
	default:
		return fmt.Errorf("%w: %w", ErrUnauthorized, common.ErrInvalidToken)
	}
}

// Query answers question about docID with one of a few canned responses.
func (m *MockClient) Query(ctx context.Context, accessToken, docID, question string) (string, error) {
	if err := sleep(ctx, m.cfg.QueryLatency); err != nil {
		return "", err
	}
	if err := m.checkOpen(); err != nil {
		return "", err
	}
	if err := m.verify(accessToken); err != nil {
		return "", err
	}
	return answer(question, rand.IntN(len(answers))), nil
}

var answers = []string{
	"Based on the document content, here is what I found regarding %q:\n\n" +
		"The document discusses several key points related to your query. The analysis shows that there are multiple perspectives to consider.\n\n" +
		"Key findings:\n- The document provides detailed information on this topic\n- Several sections address this directly\n- Further context can be found in the appendix\n\n" +
		"Would you like me to elaborate on any specific aspect?",
	"Great question! Regarding %q, the document reveals:\n\n" +
		"    Section 3.2: Analysis\n    This section covers the main aspects of the topic...\n\n" +
		"The document emphasizes the importance of understanding the broader context. The primary conclusion drawn is that this topic requires careful consideration of all available evidence.",
	"Looking at the document in detail for %q:\n\n" +
		"I found 3 relevant sections that address this:\n\n" +
		"1. Introduction - Provides background context\n2. Methodology - Explains the approach taken\n3. Results - Summarizes the findings\n\n" +
		"The overall conclusion suggests that the topic is multifaceted and requires a comprehensive approach.",
	"The document contains valuable information about %q. Here is a summary:\n\n" +
		"The authors present a compelling argument that includes both quantitative and qualitative analysis. The key takeaway is that this area benefits from continued research and attention.\n\n" +
		"For more specific details, I'd recommend reviewing pages 3-7 of the document.",
}

func answer(question string, i int) string {
	return fmt.Sprintf(answers[i%len(answers)], question)
}
