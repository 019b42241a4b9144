// Package client talks to the docvault backend.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): Login,
//     Refresh and Query.
//  2. MockClient, an in-process backend with two demo accounts, HS256 access
//     tokens, single-use rotating refresh tokens and canned answers. It
//     simulates network latency and honors context cancellation.
//  3. AuthInterceptor, a gRPC unary client interceptor that injects the
//     current access token and routes "unauthenticated" failures through the
//     retry controller.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnauthorized, ErrUnavailable, ErrInvalidCredentials,
// ErrInvalidRefreshToken.
//
// All operations accept context.Context and honor cancellation.
package client
