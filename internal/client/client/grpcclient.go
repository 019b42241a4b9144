package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/retry"
	"github.com/dmitrijs2005/docvault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Doer runs a call with the current access token, refreshing and retrying
// on ErrUnauthorized. *retry.Controller implements it.
type Doer interface {
	Do(ctx context.Context, call retry.Call) error
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, "Bearer "+token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// AuthInterceptor sends every unary RPC through d. The token is attached at
// send time, so a replay after refresh carries the new one.
func AuthInterceptor(d Doer) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return d.Do(ctx, func(ctx context.Context, token string) error {
			return mapError(invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...))
		})
	}
}

// NewConn creates a client connection with AuthInterceptor installed.
func NewConn(target string, d Doer, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(AuthInterceptor(d)),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client %s: %w", target, err)
	}
	return conn, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
