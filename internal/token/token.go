// Package token persists the bearer token between runs.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/streamvibe/streamvibe/internal/cache"
	"github.com/streamvibe/streamvibe/internal/config"
	"github.com/streamvibe/streamvibe/internal/database"
	"gorm.io/gorm"
)

// Key is the fixed name the bearer token is stored under.
const Key = "token"

// Store persists a single bearer token.
// Get returns an empty string when no token is stored.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Close() error
}

// New creates the token store selected by cfg.
func New(cfg *config.TokenStoreConfig) (Store, error) {
	if cfg == nil {
		return NewCacheStore(nil), nil
	}
	switch cfg.Type {
	case config.TokenStoreSQLite:
		db, err := database.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open token database: %w", err)
		}
		return NewDatabaseStore(db), nil
	case config.TokenStoreMemory, config.TokenStoreRedis:
		return NewCacheStore(cfg), nil
	default:
		return nil, fmt.Errorf("unknown token store type %q", cfg.Type)
	}
}

// DatabaseStore keeps the token in the sqlite credentials table.
type DatabaseStore struct {
	db database.DB
}

// NewDatabaseStore creates a token store backed by db.
func NewDatabaseStore(db database.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Get(ctx context.Context) (string, error) {
	cred, err := s.db.GetCredential(ctx, Key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cred.Value, nil
}

func (s *DatabaseStore) Set(ctx context.Context, token string) error {
	return s.db.SetCredential(ctx, Key, token)
}

func (s *DatabaseStore) Clear(ctx context.Context) error {
	return s.db.DeleteCredential(ctx, Key)
}

func (s *DatabaseStore) Close() error {
	return s.db.Close()
}

// CacheStore keeps the token in an in-process or redis cache.
type CacheStore struct {
	cache *cache.PrefixedCache[string]
}

// NewCacheStore creates a token store backed by the cache type named in cfg.
func NewCacheStore(cfg *config.TokenStoreConfig) *CacheStore {
	return &CacheStore{cache: cache.New[string](cfg, "streamvibe-")}
}

func (s *CacheStore) Get(ctx context.Context) (string, error) {
	token, err := s.cache.Get(ctx, Key)
	if errors.Is(err, cache.ErrMiss) {
		return "", nil
	}
	return token, err
}

func (s *CacheStore) Set(ctx context.Context, token string) error {
	return s.cache.Set(ctx, Key, token)
}

func (s *CacheStore) Clear(ctx context.Context) error {
	return s.cache.Delete(ctx, Key)
}

func (s *CacheStore) Close() error {
	return nil
}

// ExpiresAt reports the exp claim of a JWT bearer token.
// The signature is not verified; the backend remains the authority.
// ok is false for opaque tokens and tokens without an exp claim.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	date, err := parsed.Claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}

// Expired reports whether token carries an exp claim in the past.
func Expired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	return ok && !now.Before(exp)
}
