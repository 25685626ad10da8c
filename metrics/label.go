package metrics

import (
	"strconv"

	"google.golang.org/grpc/codes"
)

// Label 指标标签结构体
//
// 用于为指标添加维度信息。标签值应相对稳定，避免高基数标签
// （如用户 ID、请求 ID）。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数，创建一个 Label 实例
//
//	counter.Inc(ctx, metrics.L("dimension", "ip"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

const (
	// 常见的标签
	LabelService   = "service"
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelGRPCCode  = "grpc_code"
)

const (
	// 常见的结果
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// HTTPStatusClass 返回 HTTP 状态类标签值：1xx/2xx/3xx/4xx/5xx/unknown
func HTTPStatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// GRPCOutcome 将 gRPC 状态代码映射到常见的结果
func GRPCOutcome(code codes.Code) string {
	if code == codes.OK {
		return OutcomeSuccess
	}
	return OutcomeError
}
