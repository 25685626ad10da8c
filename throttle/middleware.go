package throttle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Gin context 中的身份键，由认证中间件写入
const (
	// GinKeyUserID 认证中间件写入的用户 ID 键
	GinKeyUserID = "userID"
	// GinKeyTenantID 认证中间件写入的租户 ID 键
	GinKeyTenantID = "tenantID"
)

// PolicyFunc 按请求返回限流策略覆盖，返回 nil 表示使用 Guard 的静态配置
type PolicyFunc func(c *gin.Context) *Policy

// identityFromGin 从 Gin 请求中提取限流身份
//
// IP 优先取 X-Forwarded-For 的第一个条目，用户 / 租户 ID
// 由上游认证中间件写入 context，未认证的请求对应维度跳过。
func identityFromGin(c *gin.Context) Identity {
	id := Identity{
		IP: ResolveIP(c.GetHeader("X-Forwarded-For"), c.Request.RemoteAddr),
	}
	if userID, exists := c.Get(GinKeyUserID); exists {
		if uid, ok := userID.(string); ok {
			id.UserID = uid
		}
	}
	if tenantID, exists := c.Get(GinKeyTenantID); exists {
		if tid, ok := tenantID.(string); ok {
			id.TenantID = tid
		}
	}
	return id
}

// GinMiddleware 创建多维度限流 Gin 中间件
//
// policyFunc 为 nil 时所有请求使用 Guard 的静态配置。
// 超限时返回 429 和 Retry-After 响应头，计数存储不可用时
// 返回 500（保守拒绝，不放行）。
//
// 使用示例:
//
//	r := gin.New()
//	r.Use(authMiddleware) // 写入 userID / tenantID
//	r.Use(throttle.GinMiddleware(guard, nil))
func GinMiddleware(guard *Guard, policyFunc PolicyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var policy *Policy
		if policyFunc != nil {
			policy = policyFunc(c)
		}

		err := guard.Evaluate(c.Request.Context(), identityFromGin(c), policy)
		if err == nil {
			c.Next()
			return
		}

		if le, ok := AsLimitError(err); ok {
			c.Header("Retry-After", strconv.FormatInt(le.RetryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":       le.Code,
				"message":    le.Message,
				"data":       nil,
				"retryAfter": le.RetryAfter,
			})
			return
		}

		// 计数存储不可用，保守拒绝
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "rate limit check unavailable",
			"data":    nil,
		})
	}
}
