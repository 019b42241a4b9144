package client

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/retry"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type tokens struct {
	mu      sync.Mutex
	creds   models.Credentials
	logouts int
}

func (s *tokens) AccessToken() string  { s.mu.Lock(); defer s.mu.Unlock(); return s.creds.AccessToken }
func (s *tokens) RefreshToken() string { s.mu.Lock(); defer s.mu.Unlock(); return s.creds.RefreshToken }
func (s *tokens) SetTokens(c models.Credentials, _ *models.User) {
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
}
func (s *tokens) Logout() { s.mu.Lock(); s.logouts++; s.mu.Unlock() }

type nopVault struct{}

func (nopVault) Store(context.Context, models.Credentials) error { return nil }
func (nopVault) Clear(context.Context) error                     { return nil }

type refresher struct {
	calls atomic.Int32
	next  string
}

func (r *refresher) Refresh(context.Context, string) (models.Credentials, error) {
	r.calls.Add(1)
	return models.Credentials{AccessToken: r.next, RefreshToken: "r2"}, nil
}

// startServer runs a health service that only accepts "Bearer <valid>".
func startServer(t *testing.T, valid *atomic.Value, seen *[]string, mu *sync.Mutex) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	auth := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		got := strings.Join(md.Get(common.AccessTokenHeaderName), ",")
		mu.Lock()
		*seen = append(*seen, got)
		mu.Unlock()
		if got != "Bearer "+valid.Load().(string) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return handler(ctx, req)
	}

	srv := grpc.NewServer(grpc.UnaryInterceptor(auth))
	healthpb.RegisterHealthServer(srv, health.NewServer())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis
}

func dial(t *testing.T, lis *bufconn.Listener, d Doer) healthpb.HealthClient {
	t.Helper()
	conn, err := NewConn("passthrough:///bufnet", d,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestAuthInterceptor_RefreshesAndReplaysWithNewToken(t *testing.T) {
	var (
		valid atomic.Value
		seen  []string
		mu    sync.Mutex
	)
	valid.Store("fresh")
	lis := startServer(t, &valid, &seen, &mu)

	sess := &tokens{creds: models.Credentials{AccessToken: "stale", RefreshToken: "r1"}}
	ref := &refresher{next: "fresh"}
	ctrl := retry.NewController(sess, ref, sess, nopVault{}, logging.Nop())
	hc := dial(t, lis, ctrl)

	resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	assert.Equal(t, int32(1), ref.calls.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Bearer stale", "Bearer fresh"}, seen)
}

func TestAuthInterceptor_SecondUnauthorizedLogsOut(t *testing.T) {
	var (
		valid atomic.Value
		seen  []string
		mu    sync.Mutex
	)
	valid.Store("never")
	lis := startServer(t, &valid, &seen, &mu)

	sess := &tokens{creds: models.Credentials{AccessToken: "stale", RefreshToken: "r1"}}
	ctrl := retry.NewController(sess, &refresher{next: "still-bad"}, sess, nopVault{}, logging.Nop())
	hc := dial(t, lis, ctrl)

	_, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, sess.logouts)
}

func TestWithAccessToken_ReplacesHeader(t *testing.T) {
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "old", "x-other", "1")
	ctx = withAccessToken(ctx, "new")

	md, _ := metadata.FromOutgoingContext(ctx)
	assert.Equal(t, []string{"Bearer new"}, md.Get(common.AccessTokenHeaderName))
	assert.Equal(t, []string{"1"}, md.Get("x-other"))

	md, _ = metadata.FromOutgoingContext(withAccessToken(ctx, ""))
	assert.Empty(t, md.Get(common.AccessTokenHeaderName))
}

func TestMapError(t *testing.T) {
	require.NoError(t, mapError(nil))
	require.ErrorIs(t, mapError(status.Error(codes.Unauthenticated, "x")), ErrUnauthorized)
	require.ErrorIs(t, mapError(status.Error(codes.PermissionDenied, "x")), ErrUnauthorized)
	require.ErrorIs(t, mapError(status.Error(codes.Unavailable, "x")), ErrUnavailable)
	require.ErrorIs(t, mapError(status.Error(codes.DeadlineExceeded, "x")), ErrUnavailable)

	e := status.Error(codes.Internal, "boom")
	require.ErrorContains(t, mapError(e), "rpc error:")

	plain := errors.New("plain")
	require.ErrorIs(t, mapError(plain), plain)
}
