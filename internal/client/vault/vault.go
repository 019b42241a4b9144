// Package vault keeps the credential pair in the local database, lightly
// obfuscated. The encoding is reversible and is not a security control.
package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/kv"
	"github.com/dmitrijs2005/docvault/internal/client/storage"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// ExpiryBuffer is subtracted from a token's exp before comparing with now.
const ExpiryBuffer = 3 * time.Second

type Vault struct {
	conn storage.Conn
	log  logging.Logger
}

func New(conn storage.Conn, log logging.Logger) *Vault {
	return &Vault{conn: conn, log: log}
}

func obfuscate(token string) []byte {
	return []byte(base64.StdEncoding.EncodeToString([]byte(url.QueryEscape(token))))
}

func reveal(b []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return "", err
	}
	return url.QueryUnescape(string(raw))
}

// Store writes both tokens in one transaction.
func (v *Vault) Store(ctx context.Context, creds models.Credentials) error {
	db, err := v.conn.DB(ctx)
	if err != nil {
		return err
	}
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.KeyAccessToken, obfuscate(creds.AccessToken)); err != nil {
			return err
		}
		return repo.Set(ctx, common.KeyRefreshToken, obfuscate(creds.RefreshToken))
	})
	if err != nil {
		return fmt.Errorf("store credentials: %w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

// Load returns false if either half is missing, undecodable or unreadable.
func (v *Vault) Load(ctx context.Context) (models.Credentials, bool) {
	db, err := v.conn.DB(ctx)
	if err != nil {
		v.log.Warn(ctx, "credential storage unavailable", "err", err)
		return models.Credentials{}, false
	}
	repo := kv.NewSQLiteRepository(db)

	read := func(key string) (string, bool) {
		b, err := repo.Get(ctx, key)
		if err != nil {
			v.log.Warn(ctx, "credential read failed", "key", key, "err", err)
			return "", false
		}
		if b == nil {
			return "", false
		}
		s, err := reveal(b)
		if err != nil || s == "" {
			return "", false
		}
		return s, true
	}

	access, ok := read(common.KeyAccessToken)
	if !ok {
		return models.Credentials{}, false
	}
	refresh, ok := read(common.KeyRefreshToken)
	if !ok {
		return models.Credentials{}, false
	}
	return models.Credentials{AccessToken: access, RefreshToken: refresh}, true
}

func (v *Vault) Clear(ctx context.Context) error {
	db, err := v.conn.DB(ctx)
	if err != nil {
		return err
	}
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv.NewSQLiteRepository(tx)
		return errors.Join(
			repo.Delete(ctx, common.KeyAccessToken),
			repo.Delete(ctx, common.KeyRefreshToken),
		)
	})
	if err != nil {
		return fmt.Errorf("clear credentials: %w: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

// Claims is the identity carried in an access token.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// parseClaims decodes the payload without checking the signature.
func parseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// IsExpired reports whether token is past its exp, less ExpiryBuffer. A
// malformed token, or one without exp, counts as expired.
func IsExpired(token string, now time.Time) bool {
	claims, err := parseClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return now.After(claims.ExpiresAt.Add(-ExpiryBuffer))
}

func ExtractUser(token string) (models.User, bool) {
	claims, err := parseClaims(token)
	if err != nil || claims.Subject == "" {
		return models.User{}, false
	}
	return models.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
		Role:  models.Role(claims.Role),
	}, true
}
