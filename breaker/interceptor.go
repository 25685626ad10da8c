package breaker

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// InterceptorOption 拦截器选项函数类型
type InterceptorOption func(*interceptorConfig)

// interceptorConfig 拦截器内部配置
type interceptorConfig struct {
	keyFunc KeyFunc
	cfg     *Config
}

// WithKeyFunc 设置熔断器名称的生成函数
func WithKeyFunc(fn KeyFunc) InterceptorOption {
	return func(c *interceptorConfig) {
		c.keyFunc = fn
	}
}

// WithMethodLevelKey 按方法独立熔断
func WithMethodLevelKey() InterceptorOption {
	return WithKeyFunc(MethodLevelKey())
}

// WithBackendLevelKey 按后端地址独立熔断
// 推荐用于负载均衡场景，实现后端级别的故障隔离
func WithBackendLevelKey() InterceptorOption {
	return WithKeyFunc(BackendLevelKey())
}

// WithBreakerConfig 设置拦截器首次触达某个 Key 时创建熔断器的配置
func WithBreakerConfig(cfg *Config) InterceptorOption {
	return func(c *interceptorConfig) {
		c.cfg = cfg
	}
}

// UnaryClientInterceptor 返回 gRPC 一元调用客户端拦截器
// 为每个 gRPC 调用提供熔断保护，熔断维度由 KeyFunc 决定（默认服务级别）
//
// 使用示例:
//
//	reg, _ := breaker.NewRegistry(breaker.WithLogger(logger))
//	conn, _ := grpc.NewClient("localhost:9001",
//	    grpc.WithUnaryInterceptor(
//	        breaker.UnaryClientInterceptor(reg, breaker.WithMethodLevelKey()),
//	    ),
//	)
func UnaryClientInterceptor(reg Registry, opts ...InterceptorOption) grpc.UnaryClientInterceptor {
	cfg := interceptorConfig{keyFunc: ServiceLevelKey()}
	for _, o := range opts {
		o(&cfg)
	}

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		name := cfg.keyFunc(ctx, method, cc)
		if cfg.cfg != nil {
			_ = reg.Create(name, cfg.cfg)
		}

		_, err := reg.Execute(ctx, name, func() (any, error) {
			return nil, invoker(ctx, method, req, reply, cc, callOpts...)
		})
		if err != nil && IsRejected(err) {
			// 快速失败对调用方表现为服务不可用
			return status.Error(codes.Unavailable, err.Error())
		}
		return err
	}
}
