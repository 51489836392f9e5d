package net

import (
	"context"
	"strings"
	"sync"
)

// CredentialProvider 定义“提供请求凭证”的行为标准
type CredentialProvider interface {
	// Token 获取当前调用方的访问令牌，空字符串表示未登录
	Token(ctx context.Context) (string, error)

	// ReportUnauthorized 上报令牌已失效 (远程返回 401)
	ReportUnauthorized(ctx context.Context)
}

type tokenKey struct{}

// WithToken 将调用方令牌写入 context
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, strings.TrimSpace(token))
}

// TokenFromContext 读取 context 中的令牌
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// ContextCredentials 优先使用 context 中的令牌，其次使用固定令牌 (CLI 场景)
// 被上报失效的令牌在本进程内不再使用
type ContextCredentials struct {
	fallback string

	mu      sync.RWMutex
	revoked map[string]bool
}

var _ CredentialProvider = (*ContextCredentials)(nil)

func NewContextCredentials(fallback string) *ContextCredentials {
	return &ContextCredentials{
		fallback: strings.TrimSpace(fallback),
		revoked:  make(map[string]bool),
	}
}

func (c *ContextCredentials) Token(ctx context.Context) (string, error) {
	token := TokenFromContext(ctx)
	if token == "" {
		token = c.fallback
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.revoked[token] {
		return "", nil
	}
	return token, nil
}

func (c *ContextCredentials) ReportUnauthorized(ctx context.Context) {
	token, _ := c.Token(ctx)
	if token == "" {
		return
	}
	c.mu.Lock()
	c.revoked[token] = true
	c.mu.Unlock()
}
