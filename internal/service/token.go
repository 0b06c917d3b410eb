package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront-restock-api/internal/model"
	"storefront-restock-api/pkg/uid"
)

const (
	// TokenPrefix is the prefix for all admin session tokens.
	TokenPrefix = "rst_"

	// DefaultTokenTTL is the token lifetime used when none is configured.
	DefaultTokenTTL = 1 * time.Hour

	// TokenRedisKeyPrefix is the Redis key prefix for tokens.
	TokenRedisKeyPrefix = "restock:token:"
)

// ErrInvalidToken is returned for unknown, expired or malformed tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and validates admin session tokens stored in Redis.
type TokenService struct {
	redis  redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenService creates a new token service.
func NewTokenService(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		redis:  client,
		ttl:    ttl,
		logger: logger.Named("token"),
		now:    time.Now,
	}
}

// GenerateToken creates a new session token and stores it in Redis.
func (s *TokenService) GenerateToken(ctx context.Context, data model.TokenData) (string, time.Time, error) {
	token, err := uid.Secret(TokenPrefix, 32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	data.CreatedAt = s.now()
	data.ExpiresAt = data.CreatedAt.Add(s.ttl)

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to serialize token data: %w", err)
	}

	if err := s.redis.Set(ctx, TokenRedisKeyPrefix+token, jsonData, s.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store token: %w", err)
	}

	s.logger.Info("admin token issued",
		zap.String("subject", data.Subject),
		zap.String("remote_ip", data.RemoteIP),
		zap.Time("expires_at", data.ExpiresAt))

	return token, data.ExpiresAt, nil
}

// ValidateToken checks if a token is valid and returns its data.
func (s *TokenService) ValidateToken(ctx context.Context, token string) (*model.TokenData, error) {
	if !strings.HasPrefix(token, TokenPrefix) {
		return nil, ErrInvalidToken
	}

	key := TokenRedisKeyPrefix + token
	jsonData, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var data model.TokenData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse token data: %w", err)
	}

	if s.now().After(data.ExpiresAt) {
		s.redis.Del(ctx, key)
		return nil, ErrInvalidToken
	}

	return &data, nil
}

// RevokeToken deletes a token from Redis.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	return s.redis.Del(ctx, TokenRedisKeyPrefix+token).Err()
}
