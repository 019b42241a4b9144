package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) *MockClient {
	t.Helper()
	cfg := DefaultMockConfig()
	cfg.LoginLatency, cfg.RefreshLatency, cfg.QueryLatency = 0, 0, 0
	m, err := NewMockClient(cfg)
	require.NoError(t, err)
	return m
}

func TestLogin(t *testing.T) {
	m := newMock(t)
	ctx := context.Background()

	res, err := m.Login(ctx, "demo@test.com", "demo123")
	require.NoError(t, err)
	assert.Equal(t, "user-001", res.User.ID)
	assert.Equal(t, models.RoleMember, res.User.Role)
	assert.True(t, strings.HasPrefix(res.Credentials.RefreshToken, "refresh-user-001-"))

	var c claims
	_, _, err = jwt.NewParser().ParseUnverified(res.Credentials.AccessToken, &c)
	require.NoError(t, err)
	assert.Equal(t, "demo@test.com", c.Email)
	assert.Equal(t, "user-001", c.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.ExpiresAt.Time, 5*time.Second)

	admin, err := m.Login(ctx, "admin@test.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.User.Role)

	_, err = m.Login(ctx, "demo@test.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = m.Login(ctx, "nobody@test.com", "demo123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesSingleUse(t *testing.T) {
	m := newMock(t)
	ctx := context.Background()

	res, err := m.Login(ctx, "demo@test.com", "demo123")
	require.NoError(t, err)

	next, err := m.Refresh(ctx, res.Credentials.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.Credentials.RefreshToken, next.RefreshToken)

	_, err = m.Refresh(ctx, res.Credentials.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = m.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestQuery_ValidatesToken(t *testing.T) {
	m := newMock(t)
	ctx := context.Background()

	res, err := m.Login(ctx, "demo@test.com", "demo123")
	require.NoError(t, err)

	ans, err := m.Query(ctx, res.Credentials.AccessToken, "d1", "What is it?")
	require.NoError(t, err)
	assert.Contains(t, ans, `"What is it?"`)

	_, err = m.Query(ctx, "", "d1", "q")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.Query(ctx, "garbage", "d1", "q")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, common.ErrInvalidToken)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Query(ctx, res.Credentials.AccessToken, "d1", "q")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestQuery_ForeignSignatureRejected(t *testing.T) {
	m := newMock(t)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-001", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other"))
	require.NoError(t, err)

	_, err = m.Query(context.Background(), forged, "d1", "q")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLatencyHonorsContext(t *testing.T) {
	m, err := NewMockClient(DefaultMockConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Login(ctx, "demo@test.com", "demo123")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClosed(t *testing.T) {
	m := newMock(t)
	require.NoError(t, m.Close())
	_, err := m.Login(context.Background(), "demo@test.com", "demo123")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestAnswersCoverAllTemplates(t *testing.T) {
	for i := range answers {
		assert.Contains(t, answer("q", i), `"q"`)
	}
}
