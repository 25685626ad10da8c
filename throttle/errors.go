package throttle

import (
	"fmt"

	"github.com/ceyewan/aegis/xerrors"
)

// 错误定义
var (
	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("throttle: redis connector is nil")

	// ErrStoreNil 计数存储为空
	ErrStoreNil = xerrors.New("throttle: counter store is nil")

	// ErrLimiterNil 限流器为空
	ErrLimiterNil = xerrors.New("throttle: limiter is nil")

	// ErrDimensionDisabled 该维度未配置限流规则
	ErrDimensionDisabled = xerrors.New("throttle: dimension not configured")

	// ErrInvalidDriver 存储驱动无效
	ErrInvalidDriver = xerrors.New("throttle: invalid driver")

	// ErrKeyEmpty 限流键为空
	ErrKeyEmpty = xerrors.New("throttle: key is empty")

	// ErrInvalidWindow 窗口规则无效
	ErrInvalidWindow = xerrors.New("throttle: invalid window config")

	// ErrLimitExceeded 超出限流阈值，LimitError 的哨兵错误
	ErrLimitExceeded = xerrors.New("throttle: rate limit exceeded")
)

// LimitCode 限流错误对外暴露的业务码，与 HTTP 429 对齐
const LimitCode = 429

// LimitError 携带维度信息的限流错误
//
// Guard 在某个维度超限时返回此错误，HTTP/gRPC 层用
// RetryAfter 填充 Retry-After 语义。
type LimitError struct {
	// Dimension 触发限流的维度
	Dimension Dimension

	// Code 业务码，固定为 429
	Code int

	// Message 面向客户端的可读消息
	Message string

	// Current 当前窗口内的计数
	Current int64

	// Limit 窗口上限
	Limit int64

	// RetryAfter 距窗口重置的剩余秒数
	RetryAfter int64
}

func (e *LimitError) Error() string {
	return e.Message
}

// Unwrap 支持 xerrors.Is(err, ErrLimitExceeded)
func (e *LimitError) Unwrap() error {
	return ErrLimitExceeded
}

// AsLimitError 从错误链中提取 LimitError
func AsLimitError(err error) (*LimitError, bool) {
	var le *LimitError
	if xerrors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// dimensionLabel 维度在客户端消息中的展示名
func dimensionLabel(d Dimension) string {
	switch d {
	case DimensionIP:
		return "IP"
	case DimensionUser:
		return "user"
	case DimensionTenant:
		return "tenant"
	default:
		return string(d)
	}
}

// newLimitError 构造某一维度的限流错误
func newLimitError(d Dimension, result Result) *LimitError {
	return &LimitError{
		Dimension:  d,
		Code:       LimitCode,
		Message:    fmt.Sprintf("%s request rate too high, retry in %d seconds", dimensionLabel(d), result.RetryAfter),
		Current:    result.Current,
		Limit:      result.Limit,
		RetryAfter: result.RetryAfter,
	}
}
