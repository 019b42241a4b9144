package client

import (
	"errors"

	"github.com/dmitrijs2005/docvault/internal/common"
)

var (
	ErrUnavailable         = errors.New("server unavailable")
	ErrUnauthorized        = common.ErrUnauthorized
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)
