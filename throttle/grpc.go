package throttle

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// ========================================
// 服务端拦截器 (Server Interceptor)
// ========================================

// GRPCPolicyFunc 按方法返回限流策略覆盖，返回 nil 表示使用静态配置
type GRPCPolicyFunc func(ctx context.Context, fullMethod string) *Policy

// UnaryServerInterceptor 返回 gRPC 一元调用的限流拦截器
//
// 限流身份通过 WithIdentity 写入 context（通常由上游认证拦截器
// 完成），未写入身份时回退到 Peer 地址作为 IP 维度的标识。
// 超限时返回 ResourceExhausted，计数存储不可用时返回 Unavailable。
//
// 使用示例:
//
//	server := grpc.NewServer(
//	    grpc.ChainUnaryInterceptor(
//	        authInterceptor, // 写入 throttle.Identity
//	        throttle.UnaryServerInterceptor(guard, nil),
//	    ),
//	)
func UnaryServerInterceptor(guard *Guard, policyFunc GRPCPolicyFunc) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id, ok := IdentityFromContext(ctx)
		if !ok {
			id = Identity{IP: peerIP(ctx)}
		}

		var policy *Policy
		if policyFunc != nil {
			policy = policyFunc(ctx, info.FullMethod)
		}

		if err := guard.Evaluate(ctx, id, policy); err != nil {
			if le, isLimit := AsLimitError(err); isLimit {
				return nil, status.Error(codes.ResourceExhausted, le.Message)
			}
			return nil, status.Error(codes.Unavailable, "rate limit check unavailable")
		}

		return handler(ctx, req)
	}
}

// peerIP 从 gRPC Peer 信息中解析客户端 IP
func peerIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return ResolveIP("", p.Addr.String())
	}
	return UnknownIP
}
