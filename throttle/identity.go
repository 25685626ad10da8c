package throttle

import (
	"context"
	"net"
	"strings"
)

// UnknownIP IP 无法解析时使用的兜底标识
//
// 所有解析失败的请求共享 "unknown" 的配额，上游网关应保证
// 可信的客户端地址信息。
const UnknownIP = "unknown"

// Identity 一次请求的限流身份，各维度为空表示跳过该维度
type Identity struct {
	// IP 客户端 IP
	IP string

	// UserID 已认证的用户 ID，未认证时为空
	UserID string

	// TenantID 用户归属的租户 ID
	TenantID string
}

// identityKey context 中的身份键类型
type identityKey struct{}

// WithIdentity 将限流身份写入 context，供 gRPC 拦截器等非 HTTP 入口使用
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext 从 context 中取出限流身份
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// ResolveIP 解析客户端 IP
//
// 优先取 X-Forwarded-For 头的第一个条目（最初的客户端地址），
// 为空时回退到对端地址，仍无法解析时返回 UnknownIP。
func ResolveIP(forwardedFor string, remoteAddr string) string {
	if forwardedFor != "" {
		first := forwardedFor
		if idx := strings.IndexByte(forwardedFor, ','); idx >= 0 {
			first = forwardedFor[:idx]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if remoteAddr != "" {
		if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
			return host
		}
		return remoteAddr
	}

	return UnknownIP
}
