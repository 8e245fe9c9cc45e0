package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// 默认 token 过期时间
	defaultTokenTTL = 7 * 24 * time.Hour
)

// TokenService 专门负责 token 的生成、存储、校验与注销。
// Redis Key 设计：
// - tc:token:{token} -> uid (String, TTL)
// - tc:user_tokens:{uid} -> Set(token1, token2, ...) (Set, 可选 TTL)
//
// 支持多端登录/多 token；全端注销 SMEMBERS 后批量 DEL。
type TokenService struct {
	rdb *redis.Client
}

func NewTokenService(rdb *redis.Client) *TokenService {
	return &TokenService{rdb: rdb}
}

func (s *TokenService) ensure() error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	return nil
}

func (s *TokenService) tokenKey(token string) string {
	return "tc:token:" + token
}

func (s *TokenService) userTokensKey(uid string) string {
	return "tc:user_tokens:" + uid
}

// GenerateToken 生成一个随机 token（不包含任何用户信息）。
func (s *TokenService) GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// StoreToken 保存 token -> uid 映射，并把 token 加入 user 的 token 集合。
func (s *TokenService) StoreToken(ctx context.Context, token, uid string, ttl time.Duration) error {
	if err := s.ensure(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.tokenKey(token), uid, ttl)
	pipe.SAdd(ctx, s.userTokensKey(uid), token)
	// user token set 的 TTL 不是必须；略大于 token TTL 方便自动清理
	pipe.Expire(ctx, s.userTokensKey(uid), ttl+24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// GetUIDByToken 根据 token 取 uid。
func (s *TokenService) GetUIDByToken(ctx context.Context, token string) (string, error) {
	if err := s.ensure(); err != nil {
		return "", err
	}
	return s.rdb.Get(ctx, s.tokenKey(token)).Result()
}

// RevokeToken 注销单个 token（两边一起删）。
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	if err := s.ensure(); err != nil {
		return err
	}
	uid, err := s.GetUIDByToken(ctx, token)
	if err == nil && uid != "" {
		_ = s.rdb.SRem(ctx, s.userTokensKey(uid), token).Err()
	}
	return s.rdb.Del(ctx, s.tokenKey(token)).Err()
}

// ListUserTokens 列出用户所有 token（用于全端注销/判断是否还在线）。
func (s *TokenService) ListUserTokens(ctx context.Context, uid string) ([]string, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	return s.rdb.SMembers(ctx, s.userTokensKey(uid)).Result()
}

// RevokeAllTokensByUser 注销用户全部 token。
func (s *TokenService) RevokeAllTokensByUser(ctx context.Context, uid string) error {
	if err := s.ensure(); err != nil {
		return err
	}
	tokens, err := s.ListUserTokens(ctx, uid)
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, t := range tokens {
		pipe.Del(ctx, s.tokenKey(t))
	}
	pipe.Del(ctx, s.userTokensKey(uid))
	_, err = pipe.Exec(ctx)
	return err
}
