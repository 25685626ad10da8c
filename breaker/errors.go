package breaker

import (
	"fmt"
	"time"

	"github.com/ceyewan/aegis/xerrors"
)

// 错误定义
var (
	// ErrNameEmpty 熔断器名称为空
	ErrNameEmpty = xerrors.New("breaker: name is empty")

	// ErrNotFound 熔断器不存在
	ErrNotFound = xerrors.New("breaker: not found")

	// ErrOpenState 熔断器处于打开状态，OpenError 的哨兵错误
	ErrOpenState = xerrors.New("breaker: circuit breaker is open")

	// ErrIsolatedState 熔断器处于隔离状态，IsolatedError 的哨兵错误
	ErrIsolatedState = xerrors.New("breaker: circuit breaker is isolated")
)

// OpenError 熔断器打开（或半开探测名额已占用）时的快速失败错误
type OpenError struct {
	// Name 熔断器名称
	Name string

	// RetryAfter 距冷却期结束的剩余时间，半开拒绝时为 0
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("breaker: circuit %q is open", e.Name)
}

// Unwrap 支持 xerrors.Is(err, ErrOpenState)
func (e *OpenError) Unwrap() error {
	return ErrOpenState
}

// IsolatedError 熔断器被手动隔离时的快速失败错误
type IsolatedError struct {
	// Name 熔断器名称
	Name string
}

func (e *IsolatedError) Error() string {
	return fmt.Sprintf("breaker: circuit %q is isolated", e.Name)
}

// Unwrap 支持 xerrors.Is(err, ErrIsolatedState)
func (e *IsolatedError) Unwrap() error {
	return ErrIsolatedState
}

// IsOpen 判断错误是否由熔断器打开（含半开拒绝）导致
func IsOpen(err error) bool {
	return xerrors.Is(err, ErrOpenState)
}

// IsIsolated 判断错误是否由熔断器隔离导致
func IsIsolated(err error) bool {
	return xerrors.Is(err, ErrIsolatedState)
}

// IsRejected 判断错误是否为熔断器的快速失败（打开或隔离）
// 用于降级逻辑区分"被熔断拒绝"与"调用本身失败"
func IsRejected(err error) bool {
	return IsOpen(err) || IsIsolated(err)
}
