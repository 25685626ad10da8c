package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// invokeInterceptor 以固定的 handler 执行一次拦截
func invokeInterceptor(t *testing.T, interceptor grpc.UnaryServerInterceptor, ctx context.Context) error {
	t.Helper()

	handler := func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	}
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Method"}, handler)
	return err
}

func TestUnaryServerInterceptor(t *testing.T) {
	t.Run("配额内的调用通过", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			User: &WindowConfig{Window: time.Minute, Limit: 2},
		})
		interceptor := UnaryServerInterceptor(guard, nil)

		ctx := WithIdentity(context.Background(), Identity{UserID: "u1"})
		require.NoError(t, invokeInterceptor(t, interceptor, ctx))
		require.NoError(t, invokeInterceptor(t, interceptor, ctx))
	})

	t.Run("超限返回 ResourceExhausted", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			User: &WindowConfig{Window: time.Minute, Limit: 1},
		})
		interceptor := UnaryServerInterceptor(guard, nil)

		ctx := WithIdentity(context.Background(), Identity{UserID: "u2"})
		require.NoError(t, invokeInterceptor(t, interceptor, ctx))

		err := invokeInterceptor(t, interceptor, ctx)
		require.Error(t, err)
		assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	})

	t.Run("未写入身份时用户维度不参与", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			User: &WindowConfig{Window: time.Minute, Limit: 1},
		})
		interceptor := UnaryServerInterceptor(guard, nil)

		for i := 0; i < 5; i++ {
			require.NoError(t, invokeInterceptor(t, interceptor, context.Background()))
		}
	})

	t.Run("未写入身份时回退到 Peer 地址限流", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			IP: &WindowConfig{Window: time.Minute, Limit: 1},
		})
		interceptor := UnaryServerInterceptor(guard, nil)

		// 无 Peer 信息时所有请求共享 unknown 的配额
		require.NoError(t, invokeInterceptor(t, interceptor, context.Background()))
		err := invokeInterceptor(t, interceptor, context.Background())
		assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	})

	t.Run("策略函数可以按方法覆盖", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{})
		interceptor := UnaryServerInterceptor(guard, func(ctx context.Context, fullMethod string) *Policy {
			return &Policy{User: &WindowConfig{Window: time.Minute, Limit: 1}}
		})

		ctx := WithIdentity(context.Background(), Identity{UserID: "u3"})
		require.NoError(t, invokeInterceptor(t, interceptor, ctx))

		err := invokeInterceptor(t, interceptor, ctx)
		assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	})
}

func TestResolveIP(t *testing.T) {
	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		want         string
	}{
		{"XFF 单条目", "10.0.0.1", "1.2.3.4:80", "10.0.0.1"},
		{"XFF 多条目取第一个", "10.0.0.1, 172.16.0.1, 192.168.0.1", "1.2.3.4:80", "10.0.0.1"},
		{"XFF 带空格", "  10.0.0.1 , 172.16.0.1", "1.2.3.4:80", "10.0.0.1"},
		{"无 XFF 回退到对端地址", "", "1.2.3.4:5678", "1.2.3.4"},
		{"对端地址无端口", "", "1.2.3.4", "1.2.3.4"},
		{"全部缺失返回 unknown", "", "", UnknownIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveIP(tt.forwardedFor, tt.remoteAddr))
		})
	}
}
