package client

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

type LoginResult struct {
	Credentials models.Credentials
	User        models.User
}

type Client interface {
	Close() error
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (models.Credentials, error)
	Query(ctx context.Context, accessToken, docID, question string) (string, error)
}
